package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/posrelay/api/responses"
	"github.com/angelmondragon/posrelay/api/validators"
	"github.com/angelmondragon/posrelay/internal/centres"
	pkgerrors "github.com/angelmondragon/posrelay/pkg/errors"
	"github.com/angelmondragon/posrelay/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const centreParam = "centre"

type centreChecker interface {
	Exists(ctx context.Context, centre string) (bool, error)
}

// ResolveCentre validates the {centre} path parameter and carries it in the
// request context. Creating writes use it directly; they register the centre.
func ResolveCentre(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			centre, err := validators.PathID(r, centreParam)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withCentre(r.Context(), logg, centre)))
		})
	}
}

// RequireCentre is ResolveCentre for routes that must not create a centre:
// unknown centres get a 404.
func RequireCentre(checker centreChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			centre, err := validators.PathID(r, centreParam)
			if err != nil {
				responses.WriteError(ctx, logg, w, centres.UnknownCentre(chi.URLParam(r, centreParam)))
				return
			}
			ctx = withCentre(ctx, logg, centre)
			ok, err := checker.Exists(ctx, centre)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check centre"))
				return
			}
			if !ok {
				responses.WriteError(ctx, logg, w, centres.UnknownCentre(centre))
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func withCentre(ctx context.Context, logg *logger.Logger, centre string) context.Context {
	ctx = WithCentre(ctx, centre)
	if logg != nil {
		ctx = logg.WithCentre(ctx, centre)
	}
	return ctx
}
