package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatherguru/server/internal/config"
	"github.com/stretchr/testify/require"
)

func rateLimitedHandler(cfg config.RateLimitConfig) http.Handler {
	return RateLimit(cfg, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(handler http.Handler, path, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitWindow(t *testing.T) {
	handler := rateLimitedHandler(config.RateLimitConfig{MaxRequests: 3, Window: time.Hour})

	// Exactly MaxRequests pass.
	for i := 0; i < 3; i++ {
		rec := doRequest(handler, "/api/events/all", "10.0.0.1:1234", nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := doRequest(handler, "/api/events/all", "10.0.0.1:1234", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "Too many requests from this IP, please try again later.")
}

func TestRateLimitPerClient(t *testing.T) {
	handler := rateLimitedHandler(config.RateLimitConfig{MaxRequests: 1, Window: time.Hour})

	require.Equal(t, http.StatusOK, doRequest(handler, "/api/test", "10.0.0.1:1234", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(handler, "/api/test", "10.0.0.1:9999", nil).Code)

	// A different address gets its own window.
	require.Equal(t, http.StatusOK, doRequest(handler, "/api/test", "10.0.0.2:1234", nil).Code)
}

func TestRateLimitSkipsNonAPIPaths(t *testing.T) {
	handler := rateLimitedHandler(config.RateLimitConfig{MaxRequests: 1, Window: time.Hour})

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, doRequest(handler, "/health", "10.0.0.1:1234", nil).Code)
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	store := newWindowStore(config.RateLimitConfig{MaxRequests: 1, Window: 20 * time.Millisecond})

	allowed, _ := store.allow("client")
	require.True(t, allowed)
	allowed, retryAfter := store.allow("client")
	require.False(t, allowed)
	require.Greater(t, retryAfter, time.Duration(0))

	time.Sleep(30 * time.Millisecond)
	allowed, _ = store.allow("client")
	require.True(t, allowed)
}

func TestRateLimitForwardedHeaders(t *testing.T) {
	trusted := []string{"10.0.0.0/8"}

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct client", "203.0.113.7:1234", nil, "203.0.113.7"},
		{
			"spoofed header from untrusted peer ignored",
			"203.0.113.7:1234",
			map[string]string{"X-Forwarded-For": "1.2.3.4"},
			"203.0.113.7",
		},
		{
			"forwarded-for honored from trusted proxy",
			"10.0.0.1:1234",
			map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.1"},
			"198.51.100.9",
		},
		{
			"real-ip honored from trusted proxy",
			"10.0.0.1:1234",
			map[string]string{"X-Real-IP": "198.51.100.10"},
			"198.51.100.10",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
			req.RemoteAddr = tc.remoteAddr
			for key, value := range tc.headers {
				req.Header.Set(key, value)
			}
			require.Equal(t, tc.want, clientKey(req, trusted))
		})
	}
}

func TestWindowStoreCleanup(t *testing.T) {
	store := newWindowStore(config.RateLimitConfig{MaxRequests: 1, Window: time.Millisecond})

	for i := 0; i < 10; i++ {
		store.allow(fmt.Sprintf("client-%d", i))
	}
	time.Sleep(5 * time.Millisecond)
	store.cleanup()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Empty(t, store.windows)
}
