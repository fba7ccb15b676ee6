package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoServer(name string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, name+" "+r.Method+" "+r.URL.RequestURI())
	}))
}

func TestMountProxiesRoutesByPrefix(t *testing.T) {
	members := echoServer("members")
	defer members.Close()
	fitness := echoServer("fitness")
	defer fitness.Close()

	membersURL, err := url.Parse(members.URL)
	require.NoError(t, err)
	fitnessURL, err := url.Parse(fitness.URL)
	require.NoError(t, err)

	r := chi.NewRouter()
	mountProxies(r, membersURL, fitnessURL)
	gateway := httptest.NewServer(r)
	defer gateway.Close()

	tests := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/api/v1/members", "members GET /members"},
		{http.MethodGet, "/api/v1/members/get/3", "members GET /members/get/3"},
		{http.MethodPut, "/api/v1/memberships/3/renew", "members PUT /memberships/3/renew"},
		{http.MethodPost, "/api/v1/fitness/workouts?memberId=3&workoutName=Run", "fitness POST /fitness/workouts?memberId=3&workoutName=Run"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, gateway.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestProxyReportsUnreachableUpstream(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL, err := url.Parse(dead.URL)
	require.NoError(t, err)
	dead.Close()

	r := chi.NewRouter()
	mountProxies(r, deadURL, deadURL)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/members", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestProxyOverwritesClientAddressHeaders(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Header.Get("X-Real-IP")+"|"+r.Header.Get("True-Client-IP"))
	}))
	defer upstream.Close()
	upstreamURL, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	r := chi.NewRouter()
	mountProxies(r, upstreamURL, upstreamURL)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
	req.RemoteAddr = "203.0.113.7:41000"
	req.Header.Set("X-Real-IP", "10.9.9.9")
	req.Header.Set("True-Client-IP", "10.8.8.8")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "203.0.113.7|", rec.Body.String())
}
