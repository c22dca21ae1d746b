package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local dev
	"https://console.notifly.io",
}

// CORS returns middleware that applies the admin console's allowed origin policy.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Correlation-Id", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Correlation-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
