//nolint:testpackage // Tests reach into visitor state to verify eviction
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLimiter_BurstThenLimited(t *testing.T) {
	l := NewLimiter(10, 3)
	defer l.Stop()

	for i := range 3 {
		allowed, _ := l.reserve("client-a")
		assert.True(t, allowed, "request %d should be within burst", i+1)
	}

	allowed, retryAfter := l.reserve("client-a")
	assert.False(t, allowed)
	assert.GreaterOrEqual(t, retryAfter, 1)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l := NewLimiter(10, 2)
	defer l.Stop()

	allowed, _ := l.reserve("client-a")
	assert.True(t, allowed)
	allowed, _ = l.reserve("client-a")
	assert.True(t, allowed)
	allowed, _ = l.reserve("client-a")
	assert.False(t, allowed)

	allowed, _ = l.reserve("client-b")
	assert.True(t, allowed)
}

func TestLimiter_WrapReturns429(t *testing.T) {
	l := NewLimiter(60, 2)
	defer l.Stop()

	wrapped := l.Wrap(okHandler())

	for i := range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/pending", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/pending", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestLimiter_ReviewersShareByHeaderNotIP(t *testing.T) {
	l := NewLimiter(60, 2)
	defer l.Stop()

	wrapped := l.Wrap(okHandler())

	send := func(reviewer string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/rev-1/approve", nil)
		req.Header.Set("X-Reviewer-Id", reviewer)
		req.RemoteAddr = "10.1.1.1:4000"
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("alice"))
	assert.Equal(t, http.StatusOK, send("alice"))
	assert.Equal(t, http.StatusTooManyRequests, send("alice"))

	// Same IP, different reviewer keeps their own quota.
	assert.Equal(t, http.StatusOK, send("bob"))
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*http.Request)
		expected string
	}{
		{
			name: "reviewer header",
			setup: func(r *http.Request) {
				r.Header.Set("X-Reviewer-Id", "alice")
				r.RemoteAddr = "192.168.1.1:12345"
			},
			expected: "reviewer:alice",
		},
		{
			name: "forwarded chain uses first hop",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")
				r.RemoteAddr = "192.168.1.1:12345"
			},
			expected: "ip:10.0.0.1",
		},
		{
			name: "remote address with port",
			setup: func(r *http.Request) {
				r.RemoteAddr = "192.168.1.1:54321"
			},
			expected: "ip:192.168.1.1",
		},
		{
			name: "remote address without port",
			setup: func(r *http.Request) {
				r.RemoteAddr = "192.168.1.1"
			},
			expected: "ip:192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			tt.setup(req)
			assert.Equal(t, tt.expected, clientKey(req))
		})
	}
}

func TestLimiter_JanitorEvictsStaleVisitors(t *testing.T) {
	l := NewLimiter(60, 10)
	defer l.Stop()

	l.reserve("stale-client")

	l.mu.Lock()
	v, exists := l.visitors["stale-client"]
	require.True(t, exists)
	v.lastSeen = time.Now().Add(-15 * time.Minute)
	l.mu.Unlock()

	l.evictStale()

	l.mu.Lock()
	_, exists = l.visitors["stale-client"]
	l.mu.Unlock()
	assert.False(t, exists)
}
