package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowExhaustsWindow(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "request %d should pass", i)
	}
	assert.False(t, l.Allow("10.0.0.1"), "fourth request should be limited")

	// A different IP has its own bucket
	assert.True(t, l.Allow("10.0.0.2"))
}

func TestAllowResetsAfterWindow(t *testing.T) {
	l := New(1, 20*time.Millisecond)

	require.True(t, l.Allow("10.0.0.1"))
	require.False(t, l.Allow("10.0.0.1"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.Allow("10.0.0.1"), "new window should refill tokens")
}

func TestEvictStale(t *testing.T) {
	l := New(5, 10*time.Millisecond)
	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")

	time.Sleep(40 * time.Millisecond)
	// Next call sweeps buckets older than two windows
	l.Allow("10.0.0.3")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "10.0.0.1")
	assert.NotContains(t, l.buckets, "10.0.0.2")
	assert.Contains(t, l.buckets, "10.0.0.3")
}

func TestMiddleware(t *testing.T) {
	l := New(2, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.RemoteAddr = "192.0.2.1:51234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
