package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/souvikree/notifly-backend/api/controllers"
	"github.com/souvikree/notifly-backend/api/middleware"
	"github.com/souvikree/notifly-backend/internal/dlq"
	"github.com/souvikree/notifly-backend/internal/ingest"
	"github.com/souvikree/notifly-backend/internal/tenants"
	"github.com/souvikree/notifly-backend/pkg/config"
	"github.com/souvikree/notifly-backend/pkg/db"
	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/pubsub"
	"github.com/souvikree/notifly-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	PubSub       *pubsub.Client
	Verifier     tenants.Verifier
	Ingest       ingest.Service
	DLQ          *dlq.Service
	MetricsGauge prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Correlation(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis, params.PubSub))
	})

	if params.MetricsGauge != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.MetricsGauge, promhttp.HandlerOpts{}))
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(params.Verifier, logg))
		r.Use(middleware.TenantRateLimit(cfg.RateLimit, params.Redis, logg))

		r.Get("/ping", controllers.TenantPing())
		r.Post("/", controllers.SubmitNotification(params.Ingest, logg))
		r.Get("/", controllers.ListNotifications(params.Ingest, logg))
		r.Get("/{requestId}", controllers.NotificationStatus(params.Ingest, logg))
	})

	r.Route("/api/v1/admin/dlq", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminJWT, logg))

		r.Get("/", controllers.AdminDLQList(params.DLQ, logg))
		r.Post("/retry-batch", controllers.AdminDLQRetryBatch(params.DLQ, logg))
		r.Post("/{requestId}/retry", controllers.AdminDLQRetry(params.DLQ, logg))
		r.Post("/{requestId}/unrecoverable", controllers.AdminDLQMarkUnrecoverable(params.DLQ, logg))
	})

	return r
}
