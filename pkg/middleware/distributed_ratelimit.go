package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DistributedRateLimiter implements fixed-window rate limiting in Redis so
// every instance shares one budget per key.
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = AuthRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}

	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Config returns the limiter settings
func (rl *DistributedRateLimiter) Config() *RateLimitConfig {
	return rl.config
}

func (rl *DistributedRateLimiter) key(key string) string {
	return fmt.Sprintf("%s:%s", rl.prefix, key)
}

func (rl *DistributedRateLimiter) limit() int64 {
	return int64(rl.config.RequestsPerWindow + rl.config.BurstSize)
}

// Allow counts the request against the current window. The window starts
// with the first request and is not extended by later ones.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rl.key(key)

	count, err := rl.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	if count == 1 {
		if err := rl.redis.Expire(ctx, redisKey, rl.config.WindowDuration).Err(); err != nil {
			return false, fmt.Errorf("redis error: %w", err)
		}
	}

	return count <= rl.limit(), nil
}

// Remaining returns the number of remaining requests in the window
func (rl *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	count, err := rl.redis.Get(ctx, rl.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return int(rl.limit()), nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.limit() - count
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining), nil
}

// TTL returns the time until the rate limit window resets
func (rl *DistributedRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, rl.key(key)).Result()
}

// Reset clears the rate limit for a key
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, rl.key(key)).Err()
}
