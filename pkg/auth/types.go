package auth

import (
	"strings"
	"time"
)

// Role is a capability tag attached to an identity
type Role string

const (
	RoleUser  Role = "User"  // Owns and manages personal todos
	RoleAdmin Role = "Admin" // Views and manages every user's todos
)

// AllRoles returns every role known to the service
func AllRoles() []Role {
	return []Role{RoleUser, RoleAdmin}
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity represents a registered account
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose hash
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole checks if the identity holds a specific role
func (i *Identity) HasRole(role Role) bool {
	if i == nil {
		return false
	}
	return HasRole(i.Roles, role)
}

// Clone returns a deep copy so callers can't mutate shared store state
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Roles = append([]Role(nil), i.Roles...)
	return &c
}

// ClaimSet is the decoded, verified content of an access token
type ClaimSet struct {
	Subject   string
	Email     string
	TokenID   string
	Username  string
	Roles     []Role
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole checks if the claim set carries a specific role
func (c *ClaimSet) HasRole(role Role) bool {
	if c == nil {
		return false
	}
	return HasRole(c.Roles, role)
}

// HasRole reports whether role is present in roles
func HasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsOwner reports whether the identity is the owner recorded on a resource
func IsOwner(identity *Identity, ownerID string) bool {
	return identity != nil && identity.ID != "" && identity.ID == ownerID
}

// CanAccess applies the ownership-or-admin rule
func CanAccess(identity *Identity, ownerID string) bool {
	return IsOwner(identity, ownerID) || identity.HasRole(RoleAdmin)
}

// NormalizeEmail returns the form used for case-insensitive email comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IssuedToken is the result of a successful authentication
type IssuedToken struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}
