package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/astrasemi/assistant/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRateLimiter(t *testing.T, maxRequests int, window time.Duration) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, client := testutil.NewTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{
		Scope:       "test",
		MaxRequests: maxRequests,
		Window:      window,
	})
	return rl, mr
}

func rateLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.Middleware())
	router.POST("/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return router
}

func sendFrom(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BlocksRequestsOverLimit(t *testing.T) {
	rl, _ := setupTestRateLimiter(t, 3, time.Minute)
	router := rateLimitedRouter(rl)

	for i := 0; i < 3; i++ {
		w := sendFrom(router, "192.168.1.1")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	w := sendFrom(router, "192.168.1.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")
}

func TestRateLimiter_DifferentIPsIndependent(t *testing.T) {
	rl, _ := setupTestRateLimiter(t, 1, time.Minute)
	router := rateLimitedRouter(rl)

	assert.Equal(t, http.StatusOK, sendFrom(router, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, sendFrom(router, "10.0.0.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(router, "10.0.0.1").Code)
}

func TestRateLimiter_ScopesAreIndependent(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	login := NewRateLimiter(client, RateLimiterConfig{Scope: "login", MaxRequests: 1, Window: time.Minute})
	reset := NewRateLimiter(client, RateLimiterConfig{Scope: "password", MaxRequests: 1, Window: time.Minute})
	ctx := context.Background()

	allowed, _, err := login.CheckLimit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = reset.CheckLimit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.True(t, mr.Exists("ratelimit:login:10.0.0.1"))
	assert.True(t, mr.Exists("ratelimit:password:10.0.0.1"))
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl, mr := setupTestRateLimiter(t, 2, time.Second)
	ctx := context.Background()
	ip := "192.168.1.100"

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.CheckLimit(ctx, ip)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, retryAfter, err := rl.CheckLimit(ctx, ip)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))

	mr.FastForward(2 * time.Second)

	allowed, _, err = rl.CheckLimit(ctx, ip)
	require.NoError(t, err)
	assert.True(t, allowed, "Request should be allowed after window expires")
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rl, mr := setupTestRateLimiter(t, 1, time.Minute)
	router := rateLimitedRouter(rl)
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, sendFrom(router, "192.168.1.1").Code)
	}
}
