package sqlstore

import (
	"context"
	"fmt"
	"time"
)

// migration is one schema step. Statements run one at a time so the same
// list works with drivers that reject multi-statement Exec.
type migration struct {
	version    int
	name       string
	statements []string
}

// The DDL sticks to types and clauses accepted by both PostgreSQL and SQLite.
var migrations = []migration{
	{
		version: 1,
		name:    "identities_and_roles",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS roles (
				name TEXT PRIMARY KEY
			)`,
			`CREATE TABLE IF NOT EXISTS identities (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL,
				normalized_email TEXT NOT NULL UNIQUE,
				username TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS identity_roles (
				identity_id TEXT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
				role TEXT NOT NULL REFERENCES roles(name),
				PRIMARY KEY (identity_id, role)
			)`,
		},
	},
	{
		version: 2,
		name:    "todos",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS todos (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				description TEXT NOT NULL,
				status INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				archived BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_todos_owner_created ON todos (owner_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_todos_created ON todos (created_at)`,
		},
	},
}

// Migrate applies every migration not yet recorded in schema_migrations
func (cm *ConnectionManager) Migrate(ctx context.Context) error {
	db := cm.Primary()

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			cm.Rebind(`INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)`),
			m.version, m.name, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}

		cm.logger.WithFields(map[string]interface{}{
			"version": m.version,
			"name":    m.name,
		}).Info("applied migration")
	}

	return nil
}
