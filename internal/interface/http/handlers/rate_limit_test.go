package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(2, time.Minute, nil)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys are counted separately")

	clock = clock.Add(45 * time.Second)
	assert.Equal(t, 15, rl.retryAfter())

	clock = clock.Add(15 * time.Second)
	assert.True(t, rl.Allow("a"), "a new window resets the counters")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, func(r *http.Request) string { return r.Header.Get("X-Client") })
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	call := func(client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Client", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("x").Code)
	limited := call("x")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, call("y").Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", ClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.1")
	assert.Equal(t, "172.16.0.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}
