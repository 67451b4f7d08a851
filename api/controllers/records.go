package controllers

import (
	"net/http"

	"github.com/angelmondragon/posrelay/api/responses"
	"github.com/angelmondragon/posrelay/api/validators"
	"github.com/angelmondragon/posrelay/internal/centres"
	"github.com/angelmondragon/posrelay/pkg/logger"
)

// ListRecords returns every record of the collection ordered by id.
func ListRecords(svc centres.Service, c centres.Collection, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		centre, ok := centreFrom(w, r, logg)
		if !ok {
			return
		}
		out, err := svc.List(ctx, centre, c)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, out)
	}
}

// CreateRecord stores a new record keyed by the id found in the body.
func CreateRecord(svc centres.Service, c centres.Collection, repairs validators.RepairObserver, logg *logger.Logger) http.HandlerFunc {
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
		rec, err := svc.Create(ctx, centre, c, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusCreated, rec)
	}
}

// UpdateRecord replaces the record named by the idParam path parameter.
func UpdateRecord(svc centres.Service, c centres.Collection, idParam string, repairs validators.RepairObserver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		centre, ok := centreFrom(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathID(r, idParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		body, err := validators.ReadJSON(r, repairs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rec, err := svc.Update(ctx, centre, c, id, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, rec)
	}
}

// RecordHistory returns every stored version of a tracked record, oldest first.
func RecordHistory(svc centres.Service, c centres.Collection, idParam string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		centre, ok := centreFrom(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathID(r, idParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		entries, err := svc.History(ctx, centre, c, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, entries)
	}
}
