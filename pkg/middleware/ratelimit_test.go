package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/contextkeys"
	"github.com/platinummonkey/tasklist/pkg/observability"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cfg *RateLimitConfig) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(cfg)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	config := &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Second,
		BurstSize:         2,
	}
	limiter, clock := newTestLimiter(config)

	allowedCount := 0
	for i := 0; i < config.RequestsPerWindow+config.BurstSize+5; i++ {
		ok, err := limiter.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		if ok {
			allowedCount++
		}
	}
	assert.Equal(t, config.RequestsPerWindow+config.BurstSize, allowedCount)

	remaining, err := limiter.Remaining(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	// other keys have their own bucket
	ok, _ := limiter.Allow(ctx, "ip:5.6.7.8")
	assert.True(t, ok)

	clock.advance(500 * time.Millisecond)
	ok, _ = limiter.Allow(ctx, "ip:1.2.3.4")
	assert.True(t, ok, "half a window refills half the rate")
	remaining, _ = limiter.Remaining(ctx, "ip:1.2.3.4")
	assert.Equal(t, 4, remaining)
}

func TestRateLimiter_FractionalRefillAccumulates(t *testing.T) {
	ctx := context.Background()
	limiter, clock := newTestLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Second})

	ok, _ := limiter.Allow(ctx, "k")
	require.True(t, ok)
	ok, _ = limiter.Allow(ctx, "k")
	require.False(t, ok)

	for i := 0; i < 3; i++ {
		clock.advance(300 * time.Millisecond)
		ok, _ = limiter.Allow(ctx, "k")
		assert.False(t, ok)
	}
	clock.advance(200 * time.Millisecond)
	ok, _ = limiter.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	ctx := context.Background()
	limiter, clock := newTestLimiter(&RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Minute})

	_, _ = limiter.Allow(ctx, "old")
	clock.advance(90 * time.Second)
	_, _ = limiter.Allow(ctx, "fresh")
	clock.advance(45 * time.Second)

	assert.Equal(t, 2, limiter.Len())
	assert.Equal(t, 1, limiter.Cleanup())
	assert.Equal(t, 1, limiter.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	limiter, _ := newTestLimiter(&RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute})
	mw := NewRateLimitMiddleware("auth", limiter, KeyByClientIP, true, metrics)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitRejectsTotal.WithLabelValues("auth")))

	// a different port on the same host shares the budget
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:6666"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

type erroringLimiter struct{}

func (erroringLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return false, assert.AnError
}
func (erroringLimiter) Remaining(ctx context.Context, key string) (int, error) { return 0, assert.AnError }
func (erroringLimiter) Config() *RateLimitConfig                              { return AuthRateLimitConfig() }

func TestRateLimitMiddleware_LimiterError(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	NewRateLimitMiddleware("auth", erroringLimiter{}, nil, true, nil).Handler(ok).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewRateLimitMiddleware("auth", erroringLimiter{}, nil, false, nil).Handler(ok).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientIP(req))
}

func TestKeyByIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "ip:192.0.2.1", KeyByIdentity(req))

	req = req.WithContext(contextkeys.WithIdentity(req.Context(), &auth.Identity{ID: "u-1"}))
	assert.Equal(t, "user:u-1", KeyByIdentity(req))
}

func TestDistributedRateLimiter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}, "ratelimit:auth")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "ip:1.1.1.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := limiter.Remaining(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	remaining, err = limiter.Remaining(ctx, "ip:2.2.2.2")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)

	ttl, err := limiter.TTL(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl, "later requests must not extend the window")

	mr.FastForward(time.Minute + time.Second)
	ok, err = limiter.Allow(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, limiter.Reset(ctx, "ip:1.1.1.1"))
	assert.False(t, mr.Exists("ratelimit:auth:ip:1.1.1.1"))
}

func TestDistributedRateLimiter_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	limiter := NewDistributedRateLimiter(client, nil, "")
	_, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
}
