package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/souvikree/notifly-backend/api/responses"
	"github.com/souvikree/notifly-backend/pkg/config"
	"github.com/souvikree/notifly-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

const readinessTimeout = 3 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Notifly-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness by pinging every hard dependency. Any failed
// ping returns 503 with the per-dependency breakdown.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, pubsubP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{
			"db":     pingDependency(ctx, dbP),
			"redis":  pingDependency(ctx, redisP),
			"pubsub": pingDependency(ctx, pubsubP),
		}

		status := http.StatusOK
		overall := "ready"
		for name, result := range checks {
			if result == "ok" {
				continue
			}
			status = http.StatusServiceUnavailable
			overall = "degraded"
			if logg != nil {
				logCtx := logg.WithFields(ctx, map[string]any{
					"dependency": name,
					"error":      result,
				})
				logg.Warn(logCtx, "readiness check failed")
			}
		}

		w.Header().Set("X-Notifly-Env", cfg.App.Env)
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": overall,
			"checks": checks,
		})
	}
}

func pingDependency(ctx context.Context, p pinger) string {
	if p == nil {
		return "not configured"
	}
	if err := p.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
