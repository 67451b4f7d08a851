package controllers

import (
	"context"
	"net/http"
	"sort"

	"github.com/angelmondragon/posrelay/api/responses"
	"github.com/angelmondragon/posrelay/pkg/config"
	pkgerrors "github.com/angelmondragon/posrelay/pkg/errors"
	"github.com/angelmondragon/posrelay/pkg/logger"
)

const envHeader = "X-PosRelay-Env"

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency; nil entries are skipped.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name, dep := range deps {
		if dep != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(envHeader, cfg.App.Env)
		for _, name := range names {
			if err := deps[name].Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
					WithDetails(map[string]any{"check": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": names})
	}
}
