package main

import (
	"context"
	"net/http"
	"time"

	"gymnexus/internal/chaos"
	"gymnexus/internal/clients"
	"gymnexus/internal/config"
	"gymnexus/internal/database"
	"gymnexus/internal/fitness"
	"gymnexus/internal/httpx"
	"gymnexus/internal/logger"
	"gymnexus/internal/telemetry"
)

func main() {
	cfg := config.Load("fitness", ":8083")
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

	store := fitness.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	clientOpts := []clients.Option{
		clients.WithTimeout(cfg.IdentityTimeout),
		clients.WithRetry(cfg.IdentityMaxAttempts, cfg.IdentityRetryBaseDelay),
	}
	if faults := chaos.NewTransport(nil,
		chaos.WithBlastRadius(cfg.ChaosFailureRate),
		chaos.WithLatency(cfg.ChaosLatency),
		chaos.WithStatus(http.StatusServiceUnavailable),
	); faults.Enabled() {
		logger.Warn().
			Float64("failure_rate", cfg.ChaosFailureRate).
			Dur("latency", cfg.ChaosLatency).
			Msg("fault injection enabled on identity lookups")
		clientOpts = append(clientOpts, clients.WithTransport(faults))
	}
	members := clients.NewMemberClient(cfg.MemberServiceURL, clientOpts...)
	svc := fitness.NewService(store, members)
	router := httpx.NewRouter(httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), cfg.TrustProxyHeaders)
	fitness.NewHandler(svc).Routes(router)

	logger.Info().
		Str("service", cfg.ServiceName).
		Str("member_service", cfg.MemberServiceURL).
		Msg("starting fitness service")
	if err := httpx.Run(httpx.ServerConfig{
		Address:         cfg.HTTPAddress,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, router); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
}
