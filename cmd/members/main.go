package main

import (
	"context"
	"time"

	"gymnexus/internal/config"
	"gymnexus/internal/database"
	"gymnexus/internal/httpx"
	"gymnexus/internal/logger"
	"gymnexus/internal/membership"
	"gymnexus/internal/telemetry"
)

func main() {
	cfg := config.Load("members", ":8082")
	logger.Init(cfg.LogLevel)

	ctx := context.Background()
	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise tracing")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to flush traces")
		}
	}()

	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	store := membership.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	svc := membership.NewService(store)
	router := httpx.NewRouter(httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), cfg.TrustProxyHeaders)
	membership.NewHandler(svc).Routes(router)

	logger.Info().Str("service", cfg.ServiceName).Str("driver", cfg.DatabaseDriver).Msg("starting member service")
	if err := httpx.Run(httpx.ServerConfig{
		Address:         cfg.HTTPAddress,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, router); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
}
