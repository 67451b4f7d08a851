package controllers

import (
	"net/http"

	"github.com/angelmondragon/posrelay/api/middleware"
	"github.com/angelmondragon/posrelay/api/responses"
	"github.com/angelmondragon/posrelay/api/validators"
	"github.com/angelmondragon/posrelay/internal/centres"
	pkgerrors "github.com/angelmondragon/posrelay/pkg/errors"
	"github.com/angelmondragon/posrelay/pkg/logger"
)

// CentreConfig returns the stored configuration blob of the centre.
func CentreConfig(svc centres.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		centre, ok := centreFrom(w, r, logg)
		if !ok {
			return
		}
		cfg, err := svc.Config(ctx, centre)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, cfg)
	}
}

// PatchConfig replaces the configuration blob. Comments and trailing commas
// are tolerated.
func PatchConfig(svc centres.Service, repairs validators.RepairObserver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		centre, ok := centreFrom(w, r, logg)
		if !ok {
			return
		}
		body, err := validators.ReadJSONC(r, repairs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.SetConfig(ctx, centre, body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func centreFrom(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	centre := middleware.CentreFromContext(r.Context())
	if centre == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "centre context missing"))
		return "", false
	}
	return centre, true
}
