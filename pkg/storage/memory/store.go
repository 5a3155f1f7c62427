package memory

import (
	"context"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/todo"
)

// Store bundles the in-memory identity store and todo repository
type Store struct {
	identities *Identities
	todos      *Todos
}

// New creates an empty store
func New() *Store {
	return &Store{
		identities: NewIdentities(),
		todos:      NewTodos(),
	}
}

func (s *Store) Credentials() auth.CredentialStore { return s.identities }
func (s *Store) Todos() todo.Repository            { return s.todos }

// HealthCheck always succeeds
func (s *Store) HealthCheck(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
