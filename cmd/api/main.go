package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/billing"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/middleware"
	"server/internal/providers/replicate"
	"server/internal/providers/stripe"
	"server/internal/push"
	"server/internal/training"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	var countryLookup middleware.CountryLookup
	if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	replicateClient, err := replicate.NewClient(replicate.Options{
		APIToken:       cfg.ReplicateAPIToken,
		BaseURL:        cfg.ReplicateBaseURL,
		TrainerOwner:   cfg.TrainerOwner,
		TrainerModel:   cfg.TrainerModel,
		TrainerVersion: cfg.TrainerVersion,
		Logger:         &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure replicate client")
	}

	stripeClient, err := stripe.NewClient(stripe.Options{
		SecretKey: cfg.StripeSecretKey,
		Logger:    &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure stripe client")
	}

	hub := push.NewHub(logger)

	trainingSvc := training.NewService(
		repo.NewTrainingJobRepository(dbpool),
		repo.NewPromptRepository(dbpool),
		replicateClient,
		replicateClient,
		hub,
		cfg.WebhookBaseURL,
		logger,
	)
	billingSvc := billing.NewService(
		repo.NewSubscriptionRepository(dbpool),
		stripeClient,
		billing.PriceConfig{
			Currency:    cfg.SubscriptionCurrency,
			ProductName: cfg.SubscriptionName,
			Description: cfg.SubscriptionDesc,
			UnitAmount:  cfg.SubscriptionPrice,
		},
		cfg.PublicBaseURL,
		cfg.StripeWebhookSecret,
		logger,
	)

	app := handlers.NewApp(trainingSvc, billingSvc, hub, logger)
	router := httpapi.NewRouter(app, logger, countryLookup, cfg.DefaultLocale)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
