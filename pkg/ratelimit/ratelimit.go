package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter is a simple token bucket keyed by client IP. Each IP gets max
// requests per window; buckets idle for two windows are evicted so the
// map does not grow with every client the process has ever seen.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket // per-IP buckets
	max     int                // tokens per window
	per     time.Duration      // window size
	sweepAt time.Time          // next stale-bucket eviction
}

type bucket struct {
	ts     time.Time // window start
	tokens int       // remaining tokens
}

// New creates a new IP-based limiter allowing max requests per window
func New(max int, per time.Duration) *Limiter {
	if max <= 0 {
		max = 1
	}
	if per <= 0 {
		per = time.Minute
	}
	return &Limiter{
		buckets: map[string]*bucket{},
		max:     max,
		per:     per,
		sweepAt: time.Now().Add(per),
	}
}

// Allow consumes one token for ip, starting a new window when the current
// one has elapsed. Returns false once the window is exhausted.
func (r *Limiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.After(r.sweepAt) {
		r.evictStale(now)
		r.sweepAt = now.Add(r.per)
	}

	b := r.buckets[ip]
	if b == nil || now.Sub(b.ts) > r.per {
		// Start a new window
		b = &bucket{ts: now, tokens: r.max}
		r.buckets[ip] = b
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// evictStale drops buckets that have sat past two windows. Caller holds mu.
func (r *Limiter) evictStale(now time.Time) {
	for ip, b := range r.buckets {
		if now.Sub(b.ts) > 2*r.per {
			delete(r.buckets, ip)
		}
	}
}

// Middleware enforces the rate limit before calling the next handler
func (r *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip, _, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			ip = req.RemoteAddr
		}

		if !r.Allow(ip) {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, req)
	})
}
