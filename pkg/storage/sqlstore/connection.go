package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/platinummonkey/tasklist/pkg/observability"
	"github.com/platinummonkey/tasklist/pkg/storage"
)

// Driver names registered with database/sql
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ConnectionManager manages primary and read replica connections
type ConnectionManager struct {
	driver   string
	primary  *sql.DB
	replicas []*sql.DB
	current  uint32 // Atomic counter for round-robin selection
	mu       sync.RWMutex
	config   ConnectionConfig
	logger   *observability.Logger
}

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	Driver      string
	PrimaryURL  string
	ReplicaURLs []string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// ConnectionConfigFrom maps storage configuration onto a connection config
func ConnectionConfigFrom(cfg storage.Config) ConnectionConfig {
	driver := DriverPostgres
	if cfg.Type == storage.TypeSQLite {
		driver = DriverSQLite
	}
	return ConnectionConfig{
		Driver:      driver,
		PrimaryURL:  cfg.URL,
		ReplicaURLs: cfg.ReplicaURLs,
		MaxConns:    cfg.MaxConns,
		MinConns:    cfg.MinConns,
		Timeout:     cfg.Timeout,
		MaxLifetime: cfg.MaxLifetime,
		MaxIdleTime: cfg.MaxIdleTime,
	}
}

// NewConnectionManager opens the primary and any replicas
func NewConnectionManager(config ConnectionConfig, logger *observability.Logger) (*ConnectionManager, error) {
	if config.Driver != DriverPostgres && config.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported driver: %q", config.Driver)
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	cm := &ConnectionManager{
		driver:   config.Driver,
		config:   config,
		replicas: make([]*sql.DB, 0),
		logger:   logger.WithField("component", "sqlstore"),
	}

	primary, err := cm.open(config.PrimaryURL, config.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to open primary connection: %w", err)
	}
	cm.primary = primary

	// SQLite has no replicas
	if config.Driver == DriverSQLite {
		if len(config.ReplicaURLs) > 0 {
			cm.logger.Warn("replica URLs ignored for sqlite")
		}
		return cm, nil
	}

	replicaMaxConns := config.MaxConns / 2
	if replicaMaxConns < 2 {
		replicaMaxConns = 2
	}
	for i, replicaURL := range config.ReplicaURLs {
		replica, err := cm.open(replicaURL, replicaMaxConns)
		if err != nil {
			// replicas are optional
			cm.logger.WithError(err).WithField("replica", i).Warn("skipping replica")
			continue
		}
		cm.replicas = append(cm.replicas, replica)
	}

	cm.logger.WithFields(map[string]interface{}{
		"driver":   config.Driver,
		"replicas": len(cm.replicas),
	}).Info("connection manager initialized")

	return cm, nil
}

func (cm *ConnectionManager) open(dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open(cm.driver, dsn)
	if err != nil {
		return nil, err
	}

	if cm.driver == DriverSQLite {
		// one writer at a time; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(cm.config.MinConns)
	}
	db.SetConnMaxLifetime(cm.config.MaxLifetime)
	db.SetConnMaxIdleTime(cm.config.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cm.config.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}
	return db, nil
}

// NewConnectionManagerFromDB wraps an already open database handle
func NewConnectionManagerFromDB(driver string, db *sql.DB, logger *observability.Logger) *ConnectionManager {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &ConnectionManager{
		driver:  driver,
		primary: db,
		logger:  logger.WithField("component", "sqlstore"),
	}
}

// Driver returns the database/sql driver name
func (cm *ConnectionManager) Driver() string {
	return cm.driver
}

// Primary returns the primary database connection (for writes)
func (cm *ConnectionManager) Primary() *sql.DB {
	return cm.primary
}

// Replica returns a read replica using round-robin selection.
// Falls back to primary if no replicas are available.
func (cm *ConnectionManager) Replica() *sql.DB {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if len(cm.replicas) == 0 {
		return cm.primary
	}

	index := atomic.AddUint32(&cm.current, 1)
	return cm.replicas[int(index%uint32(len(cm.replicas)))]
}

// ReplicaCount returns the number of live replicas
func (cm *ConnectionManager) ReplicaCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.replicas)
}

// HealthCheck checks the primary and all replicas
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("primary unhealthy: %w", err)
	}

	cm.mu.RLock()
	replicas := make([]*sql.DB, len(cm.replicas))
	copy(replicas, cm.replicas)
	cm.mu.RUnlock()

	var unhealthy []string
	for i, replica := range replicas {
		if err := replica.PingContext(ctx); err != nil {
			unhealthy = append(unhealthy, fmt.Sprintf("replica-%d", i))
		}
	}

	if len(unhealthy) > 0 && len(unhealthy) == len(replicas) {
		// primary is up, reads are degraded
		return fmt.Errorf("all replicas unhealthy: %s", strings.Join(unhealthy, ", "))
	}

	return nil
}

// ConnectionStats holds statistics for all database connections
type ConnectionStats struct {
	Primary  sql.DBStats
	Replicas []sql.DBStats
}

// Stats returns connection pool statistics for primary and replicas
func (cm *ConnectionManager) Stats() ConnectionStats {
	stats := ConnectionStats{
		Primary: cm.primary.Stats(),
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats.Replicas = make([]sql.DBStats, len(cm.replicas))
	for i, replica := range cm.replicas {
		stats.Replicas[i] = replica.Stats()
	}
	return stats
}

// RemoveUnhealthyReplicas closes and drops replicas that fail a ping.
// Reads fall back to the primary once every replica is gone.
func (cm *ConnectionManager) RemoveUnhealthyReplicas(ctx context.Context) int {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	healthy := make([]*sql.DB, 0, len(cm.replicas))
	removed := 0

	for _, replica := range cm.replicas {
		if err := replica.PingContext(ctx); err != nil {
			replica.Close()
			removed++
		} else {
			healthy = append(healthy, replica)
		}
	}

	cm.replicas = healthy
	if removed > 0 {
		cm.logger.WithField("removed", removed).Warn("removed unhealthy replicas")
	}
	return removed
}

// Close closes all database connections
func (cm *ConnectionManager) Close() error {
	var errs []error

	if err := cm.primary.Close(); err != nil {
		errs = append(errs, fmt.Errorf("primary close error: %w", err))
	}

	cm.mu.Lock()
	replicas := cm.replicas
	cm.replicas = nil
	cm.mu.Unlock()

	for i, replica := range replicas {
		if err := replica.Close(); err != nil {
			errs = append(errs, fmt.Errorf("replica-%d close error: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("connection close errors: %v", errs)
	}
	return nil
}

var positionalParam = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites $N placeholders for the connected driver. SQLite binds
// ?N by explicit index.
func (cm *ConnectionManager) Rebind(query string) string {
	if cm.driver != DriverSQLite {
		return query
	}
	return positionalParam.ReplaceAllString(query, "?$1")
}

// ParseReplicaURLs parses a comma-separated list of replica URLs
func ParseReplicaURLs(replicaURLsStr string) []string {
	if replicaURLsStr == "" {
		return nil
	}

	urls := strings.Split(replicaURLsStr, ",")
	result := make([]string, 0, len(urls))

	for _, url := range urls {
		trimmed := strings.TrimSpace(url)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
