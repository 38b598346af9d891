package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter counts requests per key in fixed windows. Counters of past
// windows are dropped lazily on the next request after the window rolls.
type RateLimiter struct {
	limit  int
	window time.Duration
	keyOf  func(*http.Request) string
	now    func() time.Time

	mu      sync.Mutex
	started time.Time
	counts  map[string]int
}

// NewRateLimiter allows limit requests per window for each key returned by
// keyOf. A nil keyOf uses ClientIP.
func NewRateLimiter(limit int, window time.Duration, keyOf func(*http.Request) string) *RateLimiter {
	if keyOf == nil {
		keyOf = ClientIP
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		keyOf:  keyOf,
		now:    time.Now,
		counts: make(map[string]int),
	}
}

// Allow records one request for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.started) >= rl.window {
		rl.started = now
		clear(rl.counts)
	}
	if rl.counts[key] >= rl.limit {
		return false
	}
	rl.counts[key]++
	return true
}

// retryAfter is the number of whole seconds until the current window ends.
func (rl *RateLimiter) retryAfter() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	left := rl.window - rl.now().Sub(rl.started)
	return max(1, int((left+time.Second-1)/time.Second))
}

// Middleware answers 429 with Retry-After once a key is over its limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(rl.keyOf(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
