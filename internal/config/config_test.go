package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load("members", ":8082")

	assert.Equal(t, "members", cfg.ServiceName)
	assert.Equal(t, ":8082", cfg.HTTPAddress)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Contains(t, cfg.DatabaseURL, "/members?")
	assert.Equal(t, 3, cfg.IdentityMaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.IdentityTimeout)
	assert.Equal(t, "http://localhost:8082", cfg.MemberServiceURL)
	assert.Zero(t, cfg.ChaosFailureRate)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_URL", "file:fitness.db")
	t.Setenv("MEMBER_SERVICE_URL", "http://members:8082/")
	t.Setenv("IDENTITY_TIMEOUT", "750ms")
	t.Setenv("IDENTITY_MAX_ATTEMPTS", "0")
	t.Setenv("IDENTITY_RETRY_BASE_DELAY", "not-a-duration")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CHAOS_FAILURE_RATE", "0.25")
	t.Setenv("CHAOS_LATENCY", "40ms")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg := Load("fitness", ":8083")

	assert.Equal(t, ":9001", cfg.HTTPAddress)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "file:fitness.db", cfg.DatabaseURL)
	assert.Equal(t, "http://members:8082", cfg.MemberServiceURL)
	assert.Equal(t, 750*time.Millisecond, cfg.IdentityTimeout)
	assert.Equal(t, 1, cfg.IdentityMaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.IdentityRetryBaseDelay)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 1e-9)
	assert.InDelta(t, 0.25, cfg.ChaosFailureRate, 1e-9)
	assert.Equal(t, 40*time.Millisecond, cfg.ChaosLatency)
	assert.True(t, cfg.TrustProxyHeaders)
}

func TestHTTPAddressWinsOverPort(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("HTTP_ADDRESS", "127.0.0.1:7000")

	cfg := Load("api", ":8080")

	assert.Equal(t, "127.0.0.1:7000", cfg.HTTPAddress)
}
