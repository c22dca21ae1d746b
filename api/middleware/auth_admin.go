package middleware

import (
	"context"
	"net/http"

	"github.com/souvikree/notifly-backend/api/responses"
	pkgAuth "github.com/souvikree/notifly-backend/pkg/auth"
	"github.com/souvikree/notifly-backend/pkg/config"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
	"github.com/souvikree/notifly-backend/pkg/logger"
)

// AdminAuth validates the bearer JWT on the admin surface and records the
// operator identity for audit entries.
func AdminAuth(cfg config.AdminJWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAdminToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxActor, claims.Actor)
			if logg != nil {
				ctx = logg.WithField(ctx, "actor", claims.Actor)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
