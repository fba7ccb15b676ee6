package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnexus/internal/apperror"
	"gymnexus/internal/chaos"
)

func newTestClient(url string, opts ...Option) *MemberClient {
	opts = append([]Option{WithRetry(3, time.Millisecond), WithTimeout(time.Second)}, opts...)
	return NewMemberClient(url, opts...)
}

func TestLookupReturnsIdentity(t *testing.T) {
	var gotPath, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"firstName":"John","lastName":"Doe","email":"john@example.com","membership":null}`))
	}))
	defer srv.Close()

	identity, err := newTestClient(srv.URL).Lookup(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), identity.ID)
	assert.Equal(t, "John", identity.FirstName)
	assert.Equal(t, "Doe", identity.LastName)
	assert.Equal(t, "/members/get/7", gotPath)
	assert.NotEmpty(t, gotRequestID)
}

func TestLookupNotFoundIsNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"404", http.StatusNotFound, "member not found"},
		{"null body", http.StatusOK, "null"},
		{"empty body", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Lookup(context.Background(), 1)
			assert.ErrorIs(t, err, apperror.ErrNotFound)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestLookupRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":3,"firstName":"Ann","lastName":"Lee"}`))
	}))
	defer srv.Close()

	identity, err := newTestClient(srv.URL).Lookup(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Ann", identity.FirstName)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLookupGivesUpAsUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, WithRetry(4, time.Millisecond)).Lookup(context.Background(), 3)
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, int32(4), calls.Load())
}

func TestLookupClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Lookup(context.Background(), 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
	assert.NotErrorIs(t, err, apperror.ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLookupRejectsOversizedResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"id":7,"firstName":"` + strings.Repeat("a", maxMemberResponse) + `","lastName":"Doe"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Lookup(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
	assert.NotErrorIs(t, err, apperror.ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLookupUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, WithRetry(2, time.Millisecond)).Lookup(context.Background(), 3)
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}

func TestLookupTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(srv.URL, WithRetry(2, time.Millisecond), WithTimeout(20*time.Millisecond)).
		Lookup(context.Background(), 3)
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}

func TestLookupSurvivesInjectedFaults(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"id":5,"firstName":"Kim","lastName":"Park"}`))
	}))
	defer srv.Close()

	var rolls int
	faults := chaos.NewTransport(nil,
		chaos.WithBlastRadius(0.5),
		chaos.WithRoll(func() float64 {
			rolls++
			if rolls <= 2 {
				return 0
			}
			return 0.99
		}))

	identity, err := newTestClient(srv.URL, WithTransport(faults)).Lookup(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Kim", identity.FirstName)
	assert.Equal(t, int32(1), calls.Load(), "only the third attempt reaches the member service")
}
