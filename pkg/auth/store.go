package auth

import "context"

// CredentialStore persists identities and their role memberships.
//
// Lookups by email are case-insensitive. Implementations return
// ErrUnknownIdentity when nothing matches and ErrDuplicateIdentity when
// Create would clash with an existing email.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id string) (*Identity, error)
	Create(ctx context.Context, identity *Identity) error
	RolesOf(ctx context.Context, identityID string) ([]Role, error)

	// AddRole grants role to the identity; granting a held role is a no-op
	AddRole(ctx context.Context, identityID string, role Role) error

	// EnsureRole registers role in the role registry if missing
	EnsureRole(ctx context.Context, role Role) error
	RoleExists(ctx context.Context, role Role) (bool, error)
}
