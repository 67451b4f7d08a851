package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type stubChecker struct {
	known map[string]bool
	err   error
}

func (s stubChecker) Exists(_ context.Context, centre string) (bool, error) {
	return s.known[centre], s.err
}

func gatedRouter(checker centreChecker) http.Handler {
	r := chi.NewRouter()
	r.With(RequireCentre(checker, nil)).Get("/{centre}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(CentreFromContext(r.Context())))
	})
	r.With(ResolveCentre(nil)).Post("/sales/{centre}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(CentreFromContext(r.Context())))
	})
	return r
}

func TestRequireCentreKnown(t *testing.T) {
	h := gatedRouter(stubChecker{known: map[string]bool{"centreA": true}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/centreA", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "centreA" {
		t.Fatalf("expected centre in context, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRequireCentreUnknown(t *testing.T) {
	h := gatedRouter(stubChecker{known: map[string]bool{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/centreZ", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Message != "Unable to find centreZ" {
		t.Fatalf("unexpected message %q", payload.Error.Message)
	}
}

func TestRequireCentreStoreFailure(t *testing.T) {
	h := gatedRouter(stubChecker{err: errors.New("redis down")})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/centreA", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestResolveCentreSkipsExistenceCheck(t *testing.T) {
	h := gatedRouter(stubChecker{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales/newCentre", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "newCentre" {
		t.Fatalf("expected unregistered centre to pass, got %d %q", rec.Code, rec.Body.String())
	}
}
