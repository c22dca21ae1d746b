package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/souvikree/notifly-backend/api/routes"
	"github.com/souvikree/notifly-backend/internal/audit"
	"github.com/souvikree/notifly-backend/internal/delivery"
	"github.com/souvikree/notifly-backend/internal/dlq"
	"github.com/souvikree/notifly-backend/internal/ingest"
	"github.com/souvikree/notifly-backend/internal/tenants"
	"github.com/souvikree/notifly-backend/pkg/config"
	"github.com/souvikree/notifly-backend/pkg/db"
	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/metrics"
	"github.com/souvikree/notifly-backend/pkg/migrate"
	"github.com/souvikree/notifly-backend/pkg/outbox"
	"github.com/souvikree/notifly-backend/pkg/pubsub"
	"github.com/souvikree/notifly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	deliveryMetrics := metrics.NewDeliveryMetrics(prometheus.DefaultRegisterer)

	verifier, err := tenants.NewVerifier(tenants.VerifierParams{
		Repo:   tenants.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create api key verifier", err)
		os.Exit(1)
	}

	ingestService, err := ingest.NewService(ingest.ServiceParams{
		Repo:      ingest.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		Outbox:    outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		MainTopic: cfg.PubSub.MainTopic,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	auditor := audit.NewRecorder(dbClient.DB(), logg, cfg.Audit.BufferSize)
	defer auditor.Close()

	tierPublisher, err := delivery.NewTierPublisher(pubsubClient, deliveryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create tier publisher", err)
		os.Exit(1)
	}

	dlqService, err := dlq.NewService(dlq.ServiceParams{
		Repo:      dlq.NewRepository(dbClient.DB()),
		Publisher: tierPublisher,
		Auditor:   auditor,
		MainTopic: cfg.PubSub.MainTopic,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dlq service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		PubSub:       pubsubClient,
		Verifier:     verifier,
		Ingest:       ingestService,
		DLQ:          dlqService,
		MetricsGauge: prometheus.DefaultGatherer,
	})

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "api",
		"port":        port,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
