package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/souvikree/notifly-backend/api/responses"
	"github.com/souvikree/notifly-backend/internal/tenants"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
	"github.com/souvikree/notifly-backend/pkg/logger"
)

// APIKeyAuth resolves the bearer API key to a tenant and seeds the context.
func APIKeyAuth(verifier tenants.Verifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidAPIKey, "missing credentials"))
				return
			}

			key, err := verifier.Verify(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxTenantID, key.TenantID)
			ctx = context.WithValue(ctx, ctxAPIKeyID, key.ID.String())
			if logg != nil {
				ctx = logg.WithTenantID(ctx, key.TenantID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
