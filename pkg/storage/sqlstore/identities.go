package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/tasklist/pkg/auth"
)

// Identities is an auth.CredentialStore backed by SQL
type Identities struct {
	conn *ConnectionManager
}

// NewIdentities creates an identity store on conn
func NewIdentities(conn *ConnectionManager) *Identities {
	return &Identities{conn: conn}
}

const identityColumns = `id, email, username, password_hash, created_at, updated_at`

// FindByEmail looks up an identity case-insensitively
func (s *Identities) FindByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE normalized_email = $1`
	return s.findOne(ctx, query, auth.NormalizeEmail(email))
}

// FindByID looks up an identity by id
func (s *Identities) FindByID(ctx context.Context, id string) (*auth.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return s.findOne(ctx, query, id)
}

func (s *Identities) findOne(ctx context.Context, query string, arg interface{}) (*auth.Identity, error) {
	var identity auth.Identity
	err := s.conn.Primary().QueryRowContext(ctx, s.conn.Rebind(query), arg).Scan(
		&identity.ID,
		&identity.Email,
		&identity.Username,
		&identity.PasswordHash,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUnknownIdentity
	} else if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	identity.CreatedAt = identity.CreatedAt.UTC()
	identity.UpdatedAt = identity.UpdatedAt.UTC()

	roles, err := s.roles(ctx, s.conn.Primary(), identity.ID)
	if err != nil {
		return nil, err
	}
	identity.Roles = roles
	return &identity, nil
}

// Create inserts a new identity and any roles it carries
func (s *Identities) Create(ctx context.Context, identity *auth.Identity) error {
	if identity == nil || identity.ID == "" || identity.Email == "" {
		return auth.InvalidInput("identity id and email are required")
	}

	tx, err := s.conn.Primary().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.conn.Rebind(`
		INSERT INTO identities (id, email, normalized_email, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`),
		identity.ID,
		identity.Email,
		auth.NormalizeEmail(identity.Email),
		identity.Username,
		identity.PasswordHash,
		identity.CreatedAt.UTC(),
		identity.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", auth.ErrDuplicateIdentity, identity.Email)
		}
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	for _, role := range identity.Roles {
		if err := s.grant(ctx, tx, identity.ID, role); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit identity: %w", err)
	}
	return nil
}

// RolesOf returns the roles held by an identity
func (s *Identities) RolesOf(ctx context.Context, identityID string) ([]auth.Role, error) {
	db := s.conn.Primary()
	if err := s.mustExist(ctx, db, identityID); err != nil {
		return nil, err
	}
	return s.roles(ctx, db, identityID)
}

// AddRole grants a role, registering it if needed
func (s *Identities) AddRole(ctx context.Context, identityID string, role auth.Role) error {
	tx, err := s.conn.Primary().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.mustExist(ctx, tx, identityID); err != nil {
		return err
	}
	if err := s.grant(ctx, tx, identityID, role); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role grant: %w", err)
	}
	return nil
}

// EnsureRole registers a role
func (s *Identities) EnsureRole(ctx context.Context, role auth.Role) error {
	return s.ensureRole(ctx, s.conn.Primary(), role)
}

// RoleExists reports whether a role is registered
func (s *Identities) RoleExists(ctx context.Context, role auth.Role) (bool, error) {
	var count int
	err := s.conn.Primary().QueryRowContext(ctx,
		s.conn.Rebind(`SELECT COUNT(*) FROM roles WHERE name = $1`), string(role),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

// Count returns the number of stored identities
func (s *Identities) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.Primary().QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count identities: %w", err)
	}
	return count, nil
}

// execQuerier is satisfied by *sql.DB and *sql.Tx
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Identities) ensureRole(ctx context.Context, db execQuerier, role auth.Role) error {
	_, err := db.ExecContext(ctx,
		s.conn.Rebind(`INSERT INTO roles (name) VALUES ($1) ON CONFLICT DO NOTHING`), string(role))
	if err != nil {
		return fmt.Errorf("failed to ensure role %s: %w", role, err)
	}
	return nil
}

func (s *Identities) grant(ctx context.Context, db execQuerier, identityID string, role auth.Role) error {
	if err := s.ensureRole(ctx, db, role); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		s.conn.Rebind(`INSERT INTO identity_roles (identity_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`),
		identityID, string(role))
	if err != nil {
		return fmt.Errorf("failed to grant role %s: %w", role, err)
	}
	return nil
}

func (s *Identities) mustExist(ctx context.Context, db execQuerier, identityID string) error {
	var count int
	err := db.QueryRowContext(ctx,
		s.conn.Rebind(`SELECT COUNT(*) FROM identities WHERE id = $1`), identityID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check identity: %w", err)
	}
	if count == 0 {
		return auth.ErrUnknownIdentity
	}
	return nil
}

func (s *Identities) roles(ctx context.Context, db execQuerier, identityID string) ([]auth.Role, error) {
	rows, err := db.QueryContext(ctx,
		s.conn.Rebind(`SELECT role FROM identity_roles WHERE identity_id = $1 ORDER BY role`), identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, auth.Role(role))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}
