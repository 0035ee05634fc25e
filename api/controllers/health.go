package controllers

import (
	"context"
	"net/http"

	"github.com/robertrullyp/drsis-finance/api/responses"
	"github.com/robertrullyp/drsis-finance/pkg/config"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
	"github.com/robertrullyp/drsis-finance/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DRSIS-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency; a nil pinger is skipped so
// partial deployments still report ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DRSIS-Env", cfg.App.Env)

		statuses := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				statuses[name] = "down"
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(statuses)
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			statuses[name] = "up"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": statuses})
	}
}

// ReadyDeps adapts concrete clients into the readiness map.
func ReadyDeps(db, redis, pubsub pinger) map[string]pinger {
	return map[string]pinger{
		"database": db,
		"redis":    redis,
		"pubsub":   pubsub,
	}
}
