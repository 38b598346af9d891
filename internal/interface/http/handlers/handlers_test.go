package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type breaker bool

func (b breaker) Healthy() bool { return bool(b) }

func TestCompositeHealthChecker(t *testing.T) {
	checker := NewCompositeHealthChecker("v-test")

	empty := checker.Check(context.Background())
	assert.True(t, empty.Healthy)
	assert.Equal(t, "No health checks registered", empty.Message)

	checker.AddCheck("store", NewPingCheck(pingFunc(func(context.Context) error { return nil })))
	checker.AddOptionalCheck("interpreter", NewBreakerCheck(breaker(false)))

	degraded := checker.Check(context.Background())
	assert.True(t, degraded.Healthy)
	assert.True(t, degraded.Ready)
	assert.Equal(t, "Degraded: interpreter", degraded.Message)
	assert.Equal(t, ErrCircuitOpen.Error(), degraded.Checks["interpreter"].Message)
	assert.False(t, degraded.Checks["interpreter"].Critical)

	checker.AddCheck("cache", NewPingCheck(pingFunc(func(context.Context) error { return errors.New("refused") })))
	failed := checker.Check(context.Background())
	assert.False(t, failed.Healthy)
	assert.False(t, failed.Ready)
	assert.Equal(t, "Some checks failed: cache", failed.Message)
	assert.Equal(t, "v-test", failed.Version)

	checker.AddOptionalCheck("cache", NewPingCheck(pingFunc(func(context.Context) error { return errors.New("refused") })))
	replaced := checker.Check(context.Background())
	assert.True(t, replaced.Healthy)
	assert.Len(t, replaced.Checks, 3)
	assert.False(t, replaced.Checks["cache"].Critical)
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := NewAPIKeyAuth("", []string{"secret", ""}).Middleware(ok)

	tests := []struct {
		name   string
		method string
		header map[string]string
		want   int
	}{
		{"reads are open", http.MethodGet, nil, http.StatusNoContent},
		{"missing key", http.MethodPost, nil, http.StatusUnauthorized},
		{"wrong key", http.MethodDelete, map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", http.MethodPut, map[string]string{"X-API-Key": "secret"}, http.StatusNoContent},
		{"bearer key", http.MethodPatch, map[string]string{"Authorization": "Bearer secret"}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/students", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	open := NewAPIKeyAuth("X-API-Key", nil)
	assert.False(t, open.Enabled())
	rec := httptest.NewRecorder()
	open.Middleware(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	h := RequestSizeLimitMiddleware(4)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "payload_too_large", body["error"].(map[string]any)["code"])
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := ChainHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mark("outer"), mark("inner"), SecurityHeadersMiddleware, NoCacheMiddleware)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
}
