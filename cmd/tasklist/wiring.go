package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/config"
	"github.com/platinummonkey/tasklist/pkg/maintenance"
	"github.com/platinummonkey/tasklist/pkg/middleware"
	"github.com/platinummonkey/tasklist/pkg/observability"
	"github.com/platinummonkey/tasklist/pkg/storage"
	"github.com/platinummonkey/tasklist/pkg/storage/cache"
	"github.com/platinummonkey/tasklist/pkg/storage/memory"
	"github.com/platinummonkey/tasklist/pkg/storage/sqlstore"
)

// dependencies are the stateful backends the service runs on
type dependencies struct {
	store       storage.Store
	credentials auth.CredentialStore
	conns       *sqlstore.ConnectionManager
	redis       *redis.Client
}

func (d *dependencies) close() error {
	var errs []error
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

func openDependencies(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (*dependencies, error) {
	st := cfg.StorageConfig()
	deps := &dependencies{}

	switch st.Type {
	case storage.TypeMemory:
		deps.store = memory.New()
	case storage.TypePostgres, storage.TypeSQLite:
		sqlStore, err := sqlstore.Open(ctx, st, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", st.Type, err)
		}
		deps.store = sqlStore
		deps.conns = sqlStore.Connections()
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", st.Type)
	}

	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(ctx, st)
		if err != nil {
			_ = deps.close()
			return nil, err
		}
		deps.redis = client
	}

	deps.credentials = deps.store.Credentials()
	if st.CacheEnabled {
		deps.credentials = cache.NewIdentities(deps.credentials, deps.redis, cache.Config{
			TTL:     st.CacheTTL,
			Entries: st.L1CacheEntries,
		}, logger, metrics)
	}

	logger.WithFields(map[string]interface{}{
		"storage": st.Type,
		"redis":   deps.redis != nil,
		"cache":   st.CacheEnabled,
	}).Info("Storage ready")
	return deps, nil
}

// limiters holds the request limiters; nil fields mean unlimited
type limiters struct {
	auth  middleware.Limiter
	api   middleware.Limiter
	local []*middleware.RateLimiter
}

func newLimiters(cfg *config.Config, client *redis.Client) *limiters {
	l := &limiters{}
	if !cfg.RateLimit.Enabled {
		return l
	}

	authCfg := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.AuthRequests,
		WindowDuration:    cfg.RateLimit.Window,
		BurstSize:         cfg.RateLimit.AuthBurst,
	}
	apiCfg := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.APIRequests,
		WindowDuration:    cfg.RateLimit.Window,
		BurstSize:         cfg.RateLimit.APIBurst,
	}

	if cfg.RateLimit.Distributed && client != nil {
		l.auth = middleware.NewDistributedRateLimiter(client, authCfg, "ratelimit:auth")
		l.api = middleware.NewDistributedRateLimiter(client, apiCfg, "ratelimit:api")
		return l
	}

	authLimiter := middleware.NewRateLimiter(authCfg)
	apiLimiter := middleware.NewRateLimiter(apiCfg)
	l.auth, l.api = authLimiter, apiLimiter
	l.local = []*middleware.RateLimiter{authLimiter, apiLimiter}
	return l
}

func newScheduler(cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics, deps *dependencies, l *limiters) (*maintenance.Scheduler, error) {
	s := maintenance.NewScheduler(logger, maintenance.DefaultJobTimeout)

	if len(l.local) > 0 {
		cleaners := make([]maintenance.BucketCleaner, 0, len(l.local))
		for _, rl := range l.local {
			cleaners = append(cleaners, rl)
		}
		if err := s.Add(maintenance.JobRateLimitCleanup, cfg.Maintenance.RateLimitCleanup,
			maintenance.RateLimitCleanup(logger, cleaners...)); err != nil {
			return nil, err
		}
	}

	if deps.conns != nil {
		if deps.conns.ReplicaCount() > 0 {
			if err := s.Add(maintenance.JobReplicaHealth, cfg.Maintenance.ReplicaHealth,
				maintenance.ReplicaHealth(deps.conns)); err != nil {
				return nil, err
			}
		}
		if metrics != nil {
			if err := s.Add(maintenance.JobPoolStats, cfg.Maintenance.PoolStats,
				maintenance.PoolStats(deps.conns, metrics)); err != nil {
				return nil, err
			}
		}
	}

	return s, nil
}
