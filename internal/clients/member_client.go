// Package clients holds the HTTP clients one service uses to call another.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"gymnexus/internal/apperror"
	"gymnexus/internal/fitness"
	"gymnexus/internal/logger"
	"gymnexus/internal/telemetry"
)

// maxMemberResponse caps how much of a member reply is read.
const maxMemberResponse = 1 << 20

// MemberClient resolves member identities against the member service. It
// implements fitness.IdentityLookup.
type MemberClient struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts uint
	baseDelay   time.Duration
	tracer      trace.Tracer
}

// Option configures a MemberClient.
type Option func(*MemberClient)

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *MemberClient) { c.httpClient.Timeout = d }
}

// WithRetry sets how many attempts a lookup makes and the first backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *MemberClient) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		c.maxAttempts = uint(maxAttempts)
		c.baseDelay = baseDelay
	}
}

// WithTransport sets the round tripper used for lookups.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *MemberClient) { c.httpClient.Transport = rt }
}

func NewMemberClient(baseURL string, opts ...Option) *MemberClient {
	c := &MemberClient{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		maxAttempts: 3,
		baseDelay:   100 * time.Millisecond,
		tracer:      otel.Tracer("gymnexus/clients"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type memberPayload struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Lookup fetches the identity of a member. It fails with apperror.ErrNotFound
// when the member service has no such member and with apperror.ErrUnavailable
// when the service could not be reached after every attempt. Only the latter
// is retried.
func (c *MemberClient) Lookup(ctx context.Context, memberID int64) (*fitness.Identity, error) {
	ctx, span := c.tracer.Start(ctx, "clients.member_lookup",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int64("member.id", memberID)))
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.MaxInterval = 10 * c.baseDelay

	attempts := 0
	identity, err := backoff.Retry(ctx, func() (*fitness.Identity, error) {
		attempts++
		return c.fetch(ctx, memberID)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			telemetry.RecordIdentityRetry()
			logger.Warn().Err(err).
				Int64("member_id", memberID).
				Int("attempt", attempts).
				Dur("retry_in", next).
				Msg("identity lookup failed, retrying")
		}),
	)
	span.SetAttributes(attribute.Int("lookup.attempts", attempts))

	if err != nil && ctx.Err() != nil && !errors.Is(err, apperror.ErrUnavailable) {
		err = fmt.Errorf("identity lookup for member %d abandoned: %v: %w", memberID, err, apperror.ErrUnavailable)
	}

	outcome := outcomeOf(err)
	telemetry.RecordIdentityLookup(outcome)
	span.SetAttributes(attribute.String("lookup.outcome", outcome))
	if err != nil {
		if outcome != "not_found" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	return identity, nil
}

func (c *MemberClient) fetch(ctx context.Context, memberID int64) (*fitness.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/members/get/%d", c.baseURL, memberID), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build member request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID(ctx))
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("member service unreachable: %v: %w", err, apperror.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(memberNotFound(memberID))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("member service returned status %d: %w", resp.StatusCode, apperror.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("unexpected status code from member service: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMemberResponse+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read member response: %v: %w", err, apperror.ErrUnavailable)
	}
	if len(body) > maxMemberResponse {
		return nil, backoff.Permanent(fmt.Errorf("member response exceeds %d bytes", maxMemberResponse))
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, backoff.Permanent(memberNotFound(memberID))
	}

	var payload memberPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode member response: %w", err))
	}
	if payload.ID == 0 {
		return nil, backoff.Permanent(memberNotFound(memberID))
	}

	return &fitness.Identity{
		ID:        payload.ID,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	}, nil
}

func memberNotFound(id int64) error {
	return fmt.Errorf("member not found with id %d: %w", id, apperror.ErrNotFound)
}

func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
