package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/tasklist/pkg/audit"
	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/observability"
)

// Defaults for the seeded administrator
const (
	DefaultAdminEmail    = "admin@gmail.com"
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "Admin_123"
)

// AdminConfig names the administrator account created on first start
type AdminConfig struct {
	Email    string
	Username string
	Password string
}

func (c AdminConfig) withDefaults() AdminConfig {
	if c.Email == "" {
		c.Email = DefaultAdminEmail
	}
	if c.Username == "" {
		c.Username = DefaultAdminUsername
	}
	if c.Password == "" {
		c.Password = DefaultAdminPassword
	}
	return c
}

// Result reports what a Seed run changed
type Result struct {
	AdminID      string
	AdminCreated bool
	RolesGranted []auth.Role
}

// Seeder installs the role registry and the administrator account
type Seeder struct {
	store       auth.CredentialStore
	hasher      auth.PasswordHasher
	admin       AdminConfig
	logger      *observability.Logger
	auditLogger audit.Logger
	now         func() time.Time
}

// NewSeeder creates a new seeder
func NewSeeder(store auth.CredentialStore, hasher auth.PasswordHasher, admin AdminConfig, logger *observability.Logger, auditLogger audit.Logger) *Seeder {
	if auditLogger == nil {
		auditLogger = audit.NoOp()
	}
	return &Seeder{
		store:       store,
		hasher:      hasher,
		admin:       admin.withDefaults(),
		logger:      logger.WithField("component", "seeder"),
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Seed is idempotent. A second run changes nothing and still leaves exactly
// one administrator holding every role.
func (s *Seeder) Seed(ctx context.Context) (*Result, error) {
	for _, role := range auth.AllRoles() {
		if err := s.store.EnsureRole(ctx, role); err != nil {
			return nil, fmt.Errorf("failed to ensure role %s: %w", role, err)
		}
	}

	admin, created, err := s.findOrCreateAdmin(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{AdminID: admin.ID, AdminCreated: created}

	held, err := s.store.RolesOf(ctx, admin.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load administrator roles: %w", err)
	}
	for _, role := range auth.AllRoles() {
		if auth.HasRole(held, role) {
			continue
		}
		if err := s.store.AddRole(ctx, admin.ID, role); err != nil {
			return nil, fmt.Errorf("failed to grant %s to administrator: %w", role, err)
		}
		result.RolesGranted = append(result.RolesGranted, role)
	}

	log := s.logger.WithFields(map[string]interface{}{
		"admin_id":      admin.ID,
		"admin_created": created,
		"roles_granted": len(result.RolesGranted),
	})
	if created || len(result.RolesGranted) > 0 {
		log.Info("Seed applied")
		_ = s.auditLogger.Log(ctx, &audit.AuditEvent{
			Timestamp:    s.now().UTC(),
			EventType:    audit.EventTypeAdminSeed,
			Status:       audit.EventStatusSuccess,
			UserID:       admin.ID,
			Username:     admin.Username,
			ResourceType: audit.ResourceTypeUser,
			ResourceID:   admin.ID,
			Message:      "administrator seeded",
			Metadata: map[string]interface{}{
				"created":       created,
				"roles_granted": result.RolesGranted,
			},
		})
	} else {
		log.Debug("Seed already applied")
	}

	return result, nil
}

func (s *Seeder) findOrCreateAdmin(ctx context.Context) (*auth.Identity, bool, error) {
	existing, err := s.store.FindByEmail(ctx, s.admin.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, auth.ErrUnknownIdentity) {
		return nil, false, fmt.Errorf("failed to look up administrator: %w", err)
	}

	hash, err := s.hasher.Hash(s.admin.Password)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	admin := &auth.Identity{
		ID:           uuid.NewString(),
		Email:        s.admin.Email,
		Username:     s.admin.Username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, admin); err != nil {
		// another instance may have seeded concurrently
		if errors.Is(err, auth.ErrDuplicateIdentity) {
			existing, findErr := s.store.FindByEmail(ctx, s.admin.Email)
			if findErr != nil {
				return nil, false, fmt.Errorf("failed to look up administrator: %w", findErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create administrator: %w", err)
	}
	return admin, true, nil
}
