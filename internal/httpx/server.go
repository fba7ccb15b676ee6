// Package httpx holds the HTTP plumbing shared by the gym services.
package httpx

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gymnexus/internal/logger"
)

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates *http.Server with provided handler.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// NewRouter returns a chi router with the common middleware stack and the
// /healthz and /metrics endpoints mounted. trustProxyHeaders makes the client
// address come from True-Client-IP, X-Real-IP or X-Forwarded-For; enable it only
// when every request arrives through a proxy that overwrites those headers,
// such as the api gateway.
func NewRouter(limiter *RateLimiter, trustProxyHeaders bool) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if trustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Run serves until SIGINT/SIGTERM and then shuts the server down gracefully.
func Run(cfg ServerConfig, handler http.Handler) error {
	server := NewServer(cfg, handler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.Address).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}
