package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/souvikree/notifly-backend/api/responses"
	"github.com/souvikree/notifly-backend/pkg/config"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
	"github.com/souvikree/notifly-backend/pkg/logger"
)

type rateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// TenantRateLimit throttles submissions per tenant with a fixed window
// counter. When the store is unreachable the configured FailOpen policy
// decides whether traffic passes.
func TenantRateLimit(cfg config.RateLimitConfig, store rateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.TenantLimit <= 0 || cfg.Window <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tenantID := TenantIDFromContext(ctx)
			if tenantID == "" {
				next.ServeHTTP(w, r)
				return
			}

			scope := fmt.Sprintf("tenant:%s", tenantID)
			allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(cfg.TenantLimit), cfg.Window)
			if err != nil {
				if cfg.FailOpen {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "error", err.Error()), "rate limiter unavailable, failing open")
					}
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}

			if !allowed {
				if cfg.HeadersOnDeny {
					w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.TenantLimit))
					w.Header().Set("X-RateLimit-Window", cfg.Window.String())
					w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				}
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"tenant_id":      tenantID,
						"attempts":       count,
						"limit":          cfg.TenantLimit,
						"window_seconds": int(cfg.Window.Seconds()),
					})
					logg.Warn(logCtx, "tenant rate limit exceeded")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
