//go:build integration
// +build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/storage"
	"github.com/platinummonkey/tasklist/pkg/todo"
)

// setupPostgres starts a PostgreSQL container and opens a migrated store on it
func setupPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tasklist_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := storage.DefaultConfig()
	cfg.Type = storage.TypePostgres
	cfg.URL = dsn

	s, err := Open(ctx, cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore_Integration(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)
	ids := s.Credentials()

	now := time.Now().UTC()
	require.NoError(t, ids.Create(ctx, &auth.Identity{
		ID: "u-1", Email: "Pat@Example.com", Username: "Pat@Example.com",
		PasswordHash: "hash", Roles: []auth.Role{auth.RoleUser}, CreatedAt: now, UpdatedAt: now,
	}))

	err := ids.Create(ctx, &auth.Identity{ID: "u-2", Email: "pat@example.com", Username: "x", PasswordHash: "h", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, auth.ErrDuplicateIdentity)

	found, err := ids.FindByEmail(ctx, "PAT@example.com")
	require.NoError(t, err)
	assert.Equal(t, []auth.Role{auth.RoleUser}, found.Roles)

	repo := s.Todos()
	created, err := repo.Create(ctx, &todo.Todo{OwnerID: "u-1", Title: "t", Description: "d"})
	require.NoError(t, err)

	created.Status = todo.StatusResolved
	require.NoError(t, repo.Update(ctx, created))

	mine, err := repo.ListForOwner(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, todo.StatusResolved, mine[0].Status)
	assert.False(t, mine[0].Updated.Before(mine[0].Created))

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), todo.ErrNotFound)
}
