// Package chaos injects faults into outbound HTTP calls so the retry and
// error-classification paths of service clients can be exercised on demand.
package chaos

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymnexus/internal/logger"
)

// ErrInjected is returned for requests failed at the transport level.
var ErrInjected = errors.New("chaos: injected transport failure")

// Transport is an http.RoundTripper that delays and fails a share of requests
// before they reach the wrapped transport.
type Transport struct {
	next        http.RoundTripper
	blastRadius float64
	latency     time.Duration
	status      int
	roll        func() float64
	tracer      trace.Tracer
}

// Option configures a Transport.
type Option func(*Transport)

// WithBlastRadius sets the share of requests that fail, from 0 to 1.
func WithBlastRadius(p float64) Option {
	return func(t *Transport) { t.blastRadius = min(max(p, 0), 1) }
}

// WithLatency delays every request by d.
func WithLatency(d time.Duration) Option {
	return func(t *Transport) { t.latency = d }
}

// WithStatus makes failed requests answer with status instead of a transport error.
func WithStatus(status int) Option {
	return func(t *Transport) { t.status = status }
}

// WithRoll replaces the random source. roll must return values in [0, 1).
func WithRoll(roll func() float64) Option {
	return func(t *Transport) { t.roll = roll }
}

// NewTransport wraps next. A nil next uses http.DefaultTransport.
func NewTransport(next http.RoundTripper, opts ...Option) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	t := &Transport{
		next:   next,
		roll:   rand.Float64,
		tracer: otel.Tracer("gymnexus/chaos"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enabled reports whether the transport alters any request.
func (t *Transport) Enabled() bool {
	return t.blastRadius > 0 || t.latency > 0
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.Enabled() {
		return t.next.RoundTrip(req)
	}

	ctx, span := t.tracer.Start(req.Context(), "chaos.round_trip",
		trace.WithAttributes(
			attribute.String("http.host", req.URL.Host),
			attribute.Float64("chaos.blast_radius", t.blastRadius),
		))
	defer span.End()

	if t.latency > 0 {
		if err := sleep(ctx, t.latency); err != nil {
			return nil, err
		}
		span.AddEvent("latency.injected", trace.WithAttributes(attribute.Int64("latency.ms", t.latency.Milliseconds())))
	}

	if t.blastRadius > 0 && t.roll() < t.blastRadius {
		span.SetAttributes(attribute.Bool("chaos.failed", true))
		logger.Debug().Str("host", req.URL.Host).Str("path", req.URL.Path).Int("status", t.status).Msg("chaos: failing request")
		if t.status == 0 {
			return nil, ErrInjected
		}
		return &http.Response{
			Status:     http.StatusText(t.status),
			StatusCode: t.status,
			Proto:      "HTTP/1.1",
			ProtoMajor: 1,
			ProtoMinor: 1,
			Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
			Body:       io.NopCloser(strings.NewReader("chaos: injected failure\n")),
			Request:    req,
		}, nil
	}

	return t.next.RoundTrip(req.WithContext(ctx))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
