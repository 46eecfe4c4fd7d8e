package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/utils"
)

// idleLimiterTTL is how long an unused limiter is kept
const idleLimiterTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per key
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

// Cleanup drops limiters idle for longer than ttl
func (rl *RateLimiter) Cleanup(ttl time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

func (rl *RateLimiter) sweep(done <-chan struct{}) {
	ticker := time.NewTicker(idleLimiterTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Cleanup(idleLimiterTTL)
		case <-done:
			return
		}
	}
}

func limit(rl *RateLimiter, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(keyFn(r)) {
				w.Header().Set("Retry-After", "1")
				utils.WriteError(w, errors.RateLimited("Too many requests. Please try again later."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit limits requests per client IP. The sweeper stops when done closes.
func RateLimit(requestsPerSecond float64, burst int, done <-chan struct{}) func(http.Handler) http.Handler {
	rl := NewRateLimiter(requestsPerSecond, burst)
	go rl.sweep(done)
	return limit(rl, clientIP)
}

// AccountRateLimit limits requests per account in the {id} route parameter,
// falling back to the client IP
func AccountRateLimit(requestsPerSecond float64, burst int, done <-chan struct{}) func(http.Handler) http.Handler {
	rl := NewRateLimiter(requestsPerSecond, burst)
	go rl.sweep(done)
	return limit(rl, func(r *http.Request) string {
		if id := chi.URLParam(r, "id"); id != "" {
			return "account:" + id
		}
		return clientIP(r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
