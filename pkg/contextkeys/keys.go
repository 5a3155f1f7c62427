// Package contextkeys defines the request-context keys set by the HTTP
// middleware chain and read by handlers.
//
// Request id, user id and the request logger live in pkg/observability so
// that non-HTTP code can log with them; everything auth-related lives here.
package contextkeys

import (
	"context"

	"github.com/platinummonkey/tasklist/pkg/auth"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ClaimsKey contains *auth.ClaimSet
	// Set by: middleware.AuthMiddleware
	// Required by: every bearer-protected route
	ClaimsKey Key = "claims"

	// IdentityKey contains *auth.Identity resolved from the claims
	// Set by: middleware.IdentityMiddleware
	// Required by: todo handlers
	IdentityKey Key = "identity"
)

// WithClaims adds a verified claim set to the context
func WithClaims(ctx context.Context, claims *auth.ClaimSet) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims retrieves the claim set from context
func GetClaims(ctx context.Context) (*auth.ClaimSet, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.ClaimSet)
	return claims, ok && claims != nil
}

// WithIdentity adds the requesting identity to the context
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity retrieves the requesting identity from context
func GetIdentity(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(*auth.Identity)
	return identity, ok && identity != nil
}
