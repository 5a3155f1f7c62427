package auth

import (
	"context"
	"errors"
	"fmt"
)

// Gate validates tokens and decides access to owned resources
type Gate struct {
	tokens *TokenManager
	store  CredentialStore
}

// NewGate creates a new authorization gate
func NewGate(tokens *TokenManager, store CredentialStore) *Gate {
	return &Gate{tokens: tokens, store: store}
}

// Authorize validates token and checks that it carries every required role
func (g *Gate) Authorize(token string, requiredRoles ...Role) (*ClaimSet, error) {
	claims, err := g.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	for _, role := range requiredRoles {
		if !claims.HasRole(role) {
			return claims, fmt.Errorf("%w: role %s required", ErrForbidden, role)
		}
	}
	return claims, nil
}

// ResolveIdentity loads the requesting identity through the email claim.
// Roles come from the store, not from the token.
func (g *Gate) ResolveIdentity(ctx context.Context, claims *ClaimSet) (*Identity, error) {
	if claims == nil || claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no email claim", ErrUnauthenticated)
	}

	identity, err := g.store.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrUnknownIdentity) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}
	if claims.Subject != "" && claims.Subject != identity.ID {
		return nil, fmt.Errorf("%w: token subject does not match identity", ErrUnauthenticated)
	}

	roles, err := g.store.RolesOf(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	identity.Roles = roles
	return identity, nil
}

// CanAccess applies the ownership-or-admin rule
func (g *Gate) CanAccess(identity *Identity, ownerID string) bool {
	return CanAccess(identity, ownerID)
}

// CheckAccess returns ErrForbidden when identity may not act on a resource
// owned by ownerID
func (g *Gate) CheckAccess(identity *Identity, ownerID string) error {
	if !CanAccess(identity, ownerID) {
		return ErrForbidden
	}
	return nil
}
