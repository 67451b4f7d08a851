package controllers

import (
	"net/http"

	"github.com/angelmondragon/posrelay/api/responses"
	"github.com/angelmondragon/posrelay/internal/sales"
	"github.com/angelmondragon/posrelay/pkg/config"
	"github.com/angelmondragon/posrelay/pkg/logger"
)

type centreCapabilities struct {
	SupportItems   string `json:"support_items"`
	SupportScreens string `json:"support_screens"`
	PollRate       int    `json:"poll_rate"`
}

type statusResponse struct {
	Center centreCapabilities `json:"center"`
	Sales  []sales.Sale       `json:"sales"`
}

// CentreStatus is the terminal poll: it drains the sales queue and returns
// the batch along with the relay capabilities.
func CentreStatus(svc sales.Service, cfg config.RelayConfig, logg *logger.Logger) http.HandlerFunc {
	caps := centreCapabilities{
		SupportItems:   cfg.SupportItems,
		SupportScreens: cfg.SupportScreens,
		PollRate:       cfg.PollRate,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		centre, ok := centreFrom(w, r, logg)
		if !ok {
			return
		}
		batch, err := svc.Drain(ctx, centre)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, statusResponse{Center: caps, Sales: batch})
	}
}
