package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/todo"
)

// Backend types
const (
	TypeMemory   = "memory"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Store is one backend holding identities, roles and todos
type Store interface {
	Credentials() auth.CredentialStore
	Todos() todo.Repository

	// HealthCheck reports whether the backend is reachable
	HealthCheck(ctx context.Context) error

	Close() error
}

// Config for storage backend
type Config struct {
	Type string // "memory", "postgres", "sqlite"

	// SQL config. URL is a postgres connection string or a sqlite DSN.
	URL         string
	ReplicaURLs []string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// Identity cache config
	CacheEnabled   bool
	CacheTTL       time.Duration
	L1CacheEntries int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:            TypeMemory,
		MaxConns:        20,
		MinConns:        2,
		Timeout:         10 * time.Second,
		MaxLifetime:     30 * time.Minute,
		MaxIdleTime:     5 * time.Minute,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
		CacheEnabled:    true,
		CacheTTL:        5 * time.Minute,
		L1CacheEntries:  1024,
	}
}

// Validate checks the backend selection
func (c Config) Validate() error {
	switch c.Type {
	case TypeMemory:
		return nil
	case TypePostgres, TypeSQLite:
		if c.URL == "" {
			return fmt.Errorf("storage URL is required for %s", c.Type)
		}
		if c.MaxConns < 1 {
			return fmt.Errorf("storage max connections must be positive")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage type: %q", c.Type)
	}
}
