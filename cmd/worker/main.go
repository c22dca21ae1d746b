package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/souvikree/notifly-backend/internal/delivery"
	"github.com/souvikree/notifly-backend/internal/delivery/providers"
	"github.com/souvikree/notifly-backend/internal/dlq"
	"github.com/souvikree/notifly-backend/internal/fallback"
	"github.com/souvikree/notifly-backend/pkg/config"
	"github.com/souvikree/notifly-backend/pkg/db"
	"github.com/souvikree/notifly-backend/pkg/enums"
	"github.com/souvikree/notifly-backend/pkg/instance"
	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/metrics"
	"github.com/souvikree/notifly-backend/pkg/migrate"
	"github.com/souvikree/notifly-backend/pkg/outbox/idempotency"
	"github.com/souvikree/notifly-backend/pkg/pubsub"
	"github.com/souvikree/notifly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	idemManager, err := idempotency.NewManager(redisClient, cfg.Delivery.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	resolver, err := fallback.NewResolver(fallback.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create fallback resolver", err)
		os.Exit(1)
	}

	registry := providers.Registry{
		enums.ChannelEmail:   providers.NewEmailProvider(logg),
		enums.ChannelSMS:     providers.NewSMSProvider(logg),
		enums.ChannelPush:    providers.NewPushProvider(logg),
		enums.ChannelWebhook: providers.NewWebhookProvider(nil),
	}

	tierPublisher, err := delivery.NewTierPublisher(pubsubClient, deliveryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create tier publisher", err)
		os.Exit(1)
	}

	deliveryRepo := delivery.NewRepository(dbClient.DB())
	topology := delivery.NewTopology(cfg.PubSub)

	processor, err := delivery.NewProcessor(delivery.ProcessorParams{
		Repo:               deliveryRepo,
		Resolver:           resolver,
		Providers:          registry,
		Publisher:          tierPublisher,
		Topology:           topology,
		Metrics:            deliveryMetrics,
		Logger:             logg,
		MaxAttempts:        cfg.Delivery.MaxAttempts,
		ProviderTimeout:    cfg.Delivery.ProviderTimeout,
		StopOnFirstSuccess: cfg.Delivery.StopOnFirstSuccess,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery processor", err)
		os.Exit(1)
	}

	consumers, err := buildTierConsumers(pubsubClient, topology, processor, idemManager, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tier consumers", err)
		os.Exit(1)
	}

	dlqConsumer, err := dlq.NewConsumer(pubsubClient.DLQSubscription(), deliveryRepo, deliveryMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dlq consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		PubSub:        pubsubClient,
		TierConsumers: consumers,
		DLQConsumer:   dlqConsumer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "worker",
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting delivery worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}

func buildTierConsumers(client *pubsub.Client, topology delivery.Topology, processor *delivery.Processor, manager *idempotency.Manager, logg *logger.Logger) ([]*delivery.Consumer, error) {
	main, err := delivery.NewConsumer("main", client.MainSubscription(), 0, processor, manager, logg)
	if err != nil {
		return nil, err
	}
	consumers := []*delivery.Consumer{main}

	for _, tier := range topology.Retries {
		consumer, err := delivery.NewConsumer(tier.Subscription, client.Subscription(tier.Subscription), tier.Delay, processor, manager, logg)
		if err != nil {
			return nil, err
		}
		consumers = append(consumers, consumer)
	}
	return consumers, nil
}
