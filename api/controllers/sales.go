package controllers

import (
	"net/http"

	"github.com/angelmondragon/posrelay/api/responses"
	"github.com/angelmondragon/posrelay/api/validators"
	"github.com/angelmondragon/posrelay/internal/sales"
	"github.com/angelmondragon/posrelay/pkg/logger"
)

type enqueueResponse struct {
	ID     string `json:"id"`
	Queued bool   `json:"queued"`
}

// EnqueueSale appends a sale to the centre queue for the next status poll.
func EnqueueSale(svc sales.Service, repairs validators.RepairObserver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		centre, ok := centreFrom(w, r, logg)
		if !ok {
			return
		}
		body, err := validators.ReadJSON(r, repairs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		sale, err := svc.Enqueue(ctx, centre, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusAccepted, enqueueResponse{ID: sale.ID, Queued: true})
	}
}

// SaleAudit lists every drain that delivered the sale.
func SaleAudit(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		centre, ok := centreFrom(w, r, logg)
		if !ok {
			return
		}
		saleID, err := validators.PathID(r, "sale")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		entries, err := svc.AuditTrail(ctx, centre, saleID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, entries)
	}
}
