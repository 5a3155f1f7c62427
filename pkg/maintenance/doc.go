// Package maintenance schedules background housekeeping: pruning idle rate
// limit buckets, dropping dead read replicas and publishing pool statistics.
package maintenance
