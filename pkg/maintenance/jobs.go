package maintenance

import (
	"context"

	"github.com/platinummonkey/tasklist/pkg/observability"
	"github.com/platinummonkey/tasklist/pkg/storage/sqlstore"
)

// Job names
const (
	JobRateLimitCleanup = "rate_limit_cleanup"
	JobReplicaHealth    = "replica_health"
	JobPoolStats        = "pool_stats"
)

// BucketCleaner drops idle rate limit state
type BucketCleaner interface {
	Cleanup() int
}

// ReplicaPruner drops read replicas that stopped answering
type ReplicaPruner interface {
	RemoveUnhealthyReplicas(ctx context.Context) int
}

// PoolReporter exposes connection pool statistics
type PoolReporter interface {
	Stats() sqlstore.ConnectionStats
	ReplicaCount() int
}

// RateLimitCleanup removes idle buckets from every cleaner
func RateLimitCleanup(logger *observability.Logger, cleaners ...BucketCleaner) JobFunc {
	return func(ctx context.Context) {
		removed := 0
		for _, c := range cleaners {
			if c != nil {
				removed += c.Cleanup()
			}
		}
		if removed > 0 {
			logger.WithField("removed", removed).Debug("rate limit buckets cleaned")
		}
	}
}

// ReplicaHealth prunes unhealthy replicas
func ReplicaHealth(pruner ReplicaPruner) JobFunc {
	return func(ctx context.Context) {
		pruner.RemoveUnhealthyReplicas(ctx)
	}
}

// PoolStats publishes primary pool statistics and the live replica count
func PoolStats(reporter PoolReporter, metrics *observability.Metrics) JobFunc {
	return func(ctx context.Context) {
		metrics.ObserveDBStats(reporter.Stats().Primary, reporter.ReplicaCount())
	}
}
