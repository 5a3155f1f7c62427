package sqlstore

import (
	"context"
	"fmt"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/observability"
	"github.com/platinummonkey/tasklist/pkg/storage"
	"github.com/platinummonkey/tasklist/pkg/todo"
)

// Store bundles the SQL identity store and todo repository on one
// connection manager
type Store struct {
	conn       *ConnectionManager
	identities *Identities
	todos      *Todos
}

// Open connects using cfg and applies pending migrations
func Open(ctx context.Context, cfg storage.Config, logger *observability.Logger) (*Store, error) {
	conn, err := NewConnectionManager(ConnectionConfigFrom(cfg), logger)
	if err != nil {
		return nil, err
	}
	if err := conn.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return New(conn), nil
}

// New creates a store on an open connection manager
func New(conn *ConnectionManager) *Store {
	return &Store{
		conn:       conn,
		identities: NewIdentities(conn),
		todos:      NewTodos(conn),
	}
}

func (s *Store) Credentials() auth.CredentialStore { return s.identities }
func (s *Store) Todos() todo.Repository            { return s.todos }

// Connections exposes the connection manager for maintenance jobs
func (s *Store) Connections() *ConnectionManager {
	return s.conn
}

// HealthCheck pings the primary and replicas
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

// Close closes all connections
func (s *Store) Close() error {
	return s.conn.Close()
}
