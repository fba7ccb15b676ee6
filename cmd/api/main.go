package main

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"gymnexus/internal/config"
	"gymnexus/internal/httpx"
	"gymnexus/internal/logger"
)

func main() {
	cfg := config.Load("api", ":8080")
	logger.Init(cfg.LogLevel)

	membersURL, err := url.Parse(cfg.MemberServiceURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid MEMBER_SERVICE_URL")
	}
	fitnessURL, err := url.Parse(cfg.FitnessServiceURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid FITNESS_SERVICE_URL")
	}

	router := httpx.NewRouter(httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), cfg.TrustProxyHeaders)
	mountProxies(router, membersURL, fitnessURL)

	logger.Info().
		Str("members", membersURL.String()).
		Str("fitness", fitnessURL.String()).
		Msg("starting api gateway")
	if err := httpx.Run(httpx.ServerConfig{
		Address:         cfg.HTTPAddress,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, router); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
}

// mountProxies forwards /api/v1/{members,memberships} to the member service
// and /api/v1/fitness to the fitness service with the /api/v1 prefix removed.
func mountProxies(r chi.Router, members, fitness *url.URL) {
	membersProxy := newProxy(members)
	fitnessProxy := newProxy(fitness)

	for prefix, proxy := range map[string]http.Handler{
		"/api/v1/members":     membersProxy,
		"/api/v1/memberships": membersProxy,
		"/api/v1/fitness":     fitnessProxy,
	} {
		h := http.StripPrefix("/api/v1", proxy)
		r.Handle(prefix, h)
		r.Handle(prefix+"/*", h)
	}
}

func newProxy(target *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		// Upstreams that trust proxy headers rate limit on X-Real-IP, so it must
		// carry the peer this gateway saw rather than anything the client sent.
		req.Header.Del("True-Client-IP")
		req.Header.Set("X-Real-IP", peerIP(req.RemoteAddr))
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error().Err(err).Str("upstream", target.Host).Str("path", r.URL.Path).Msg("upstream request failed")
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return proxy
}

func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
