package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/tasklist/pkg/httputil"
	"github.com/platinummonkey/tasklist/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// AuthRateLimitConfig returns the limits for the unauthenticated login and
// registration routes
func AuthRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
		BurstSize:         5,
	}
}

// APIRateLimitConfig returns per-identity limits for bearer routes
func APIRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 600,
		WindowDuration:    time.Minute,
		BurstSize:         50,
	}
}

// Limiter decides whether one more request for key fits the budget
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Remaining(ctx context.Context, key string) (int, error)
	Config() *RateLimitConfig
}

// RateLimiter implements rate limiting using token bucket algorithm.
// Buckets are local to the process; see DistributedRateLimiter for a shared budget.
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.RWMutex
	now     func() time.Time
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = AuthRateLimitConfig()
	}

	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Config returns the limiter settings
func (rl *RateLimiter) Config() *RateLimitConfig {
	return rl.config
}

func (rl *RateLimiter) capacity() int {
	return rl.config.RequestsPerWindow + rl.config.BurstSize
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     rl.capacity(),
			lastUpdate: rl.now(),
		}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(b.lastUpdate)

	// lastUpdate only advances when whole tokens are added so fractions accumulate
	tokensToAdd := int(elapsed.Seconds() * float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds())
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		if b.tokens > rl.capacity() {
			b.tokens = rl.capacity()
		}
		b.lastUpdate = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}

	return false, nil
}

// Remaining returns the number of remaining tokens for a key
func (rl *RateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		return rl.capacity(), nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tokens, nil
}

// Cleanup removes buckets idle for two windows and returns how many it dropped
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.lastUpdate) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
			removed++
		}
		b.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked buckets
func (rl *RateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.buckets)
}

// KeyFunc derives the rate limit key for a request
type KeyFunc func(r *http.Request) string

// KeyByClientIP keys on the client address
func KeyByClientIP(r *http.Request) string {
	return "ip:" + ClientIP(r)
}

// KeyByIdentity keys on the authenticated identity, falling back to the client address
func KeyByIdentity(r *http.Request) string {
	if identity := GetIdentity(r); identity != nil {
		return "user:" + identity.ID
	}
	return KeyByClientIP(r)
}

// RateLimitMiddleware provides HTTP rate limiting
type RateLimitMiddleware struct {
	name     string
	limiter  Limiter
	keyFunc  KeyFunc
	failOpen bool
	metrics  *observability.Metrics
}

// NewRateLimitMiddleware creates a rate limit middleware. name labels the
// rejection metric. With failOpen a limiter error lets the request through.
func NewRateLimitMiddleware(name string, limiter Limiter, keyFunc KeyFunc, failOpen bool, metrics *observability.Metrics) *RateLimitMiddleware {
	if keyFunc == nil {
		keyFunc = KeyByClientIP
	}
	return &RateLimitMiddleware{
		name:     name,
		limiter:  limiter,
		keyFunc:  keyFunc,
		failOpen: failOpen,
		metrics:  metrics,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := m.keyFunc(r)
		cfg := m.limiter.Config()

		allowed, err := m.limiter.Allow(ctx, key)
		if err != nil {
			observability.FromContext(ctx).WithError(err).WithField("limiter", m.name).Warn("Rate limiter unavailable")
			if !m.failOpen {
				httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "service temporarily unavailable")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))

		if !allowed {
			m.metrics.RecordRateLimited(m.name)
			observability.FromContext(ctx).WithField("limiter", m.name).WithField("key", key).Warn("Rate limit exceeded")
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", cfg.WindowDuration.Seconds()))
			w.Header().Set("X-RateLimit-Remaining", "0")
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}

		if remaining, err := m.limiter.Remaining(ctx, key); err == nil {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the originating client address: the first
// X-Forwarded-For entry, then X-Real-IP, then the connection's host.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
