package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNewRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, 2, 3*time.Minute)

	assert.Equal(t, rate.Limit(1), rl.rate)
	assert.Equal(t, 2, rl.burst)
	assert.Equal(t, 3*time.Minute, rl.ttl)
	assert.NotNil(t, rl.visitors)
}

func TestRateLimiter_Middleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, rate.Every(time.Hour), 2, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/account/login", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:5678"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:9999"))

	// a bare address, as left by RealIP, is its own visitor
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.2"))
}

func TestRateLimiter_Evict(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, 1, time.Minute)
	rl.getVisitor("10.0.0.1")
	rl.getVisitor("10.0.0.2")

	rl.mu.Lock()
	rl.visitors["10.0.0.1"].lastSeen = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	rl.evict(time.Now())

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Contains(t, rl.visitors, "10.0.0.2")
}
