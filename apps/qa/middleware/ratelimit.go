// Package middleware provides HTTP middleware for the QA API.
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pitabwire/util"
	"golang.org/x/time/rate"
)

const (
	reviewerHeader   = "X-Reviewer-Id"
	forwardedForHdr  = "X-Forwarded-For"
	janitorInterval  = 5 * time.Minute
	visitorStaleTTL  = 10 * time.Minute
	secondsPerMinute = 60.0
)

// visitor pairs a client's token bucket with its last activity.
type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// Limiter applies a per-client token bucket. Reviewers are keyed by their
// reviewer header so a shared office IP does not starve individual reviewers;
// anonymous clients fall back to their IP.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int
	stop      chan struct{}
}

// NewLimiter creates a limiter allowing requestsPerMinute sustained with the
// given burst, and starts a janitor that drops idle clients.
func NewLimiter(requestsPerMinute, burst int) *Limiter {
	l := &Limiter{
		visitors:  make(map[string]*visitor),
		perSecond: rate.Limit(float64(requestsPerMinute) / secondsPerMinute),
		burst:     burst,
		stop:      make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Stop terminates the janitor goroutine.
func (l *Limiter) Stop() {
	close(l.stop)
}

func (l *Limiter) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictStale()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) evictStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-visitorStaleTTL)
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
		}
	}
}

// reserve takes a token for the client, reporting whether the request may
// proceed and, when it may not, the whole seconds to wait before retrying.
func (l *Limiter) reserve(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()

	if v.bucket.Allow() {
		return true, 0
	}

	reservation := v.bucket.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()

	return false, int(delay.Seconds()) + 1
}

// clientKey identifies the caller for rate limiting purposes.
func clientKey(r *http.Request) string {
	if reviewer := r.Header.Get(reviewerHeader); reviewer != "" {
		return "reviewer:" + reviewer
	}

	if xff := r.Header.Get(forwardedForHdr); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			return "ip:" + host
		}
		return "ip:" + first
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

// Wrap applies rate limiting in front of the next handler.
func (l *Limiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		allowed, retryAfter := l.reserve(key)
		if !allowed {
			util.Log(r.Context()).Warn("rate limit exceeded",
				"client", key,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests. Retry after " + strconv.Itoa(retryAfter) + " seconds.",
				"retry_after": retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
