package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("Owner").Valid())
	assert.False(t, Role("admin").Valid())
	assert.Equal(t, []Role{RoleUser, RoleAdmin}, AllRoles())
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
		role  Role
		want  bool
	}{
		{"present", []Role{RoleUser, RoleAdmin}, RoleAdmin, true},
		{"absent", []Role{RoleUser}, RoleAdmin, false},
		{"empty", nil, RoleUser, false},
		{"case sensitive", []Role{"admin"}, RoleAdmin, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasRole(tt.roles, tt.role))
		})
	}

	var nilIdentity *Identity
	assert.False(t, nilIdentity.HasRole(RoleUser))
	var nilClaims *ClaimSet
	assert.False(t, nilClaims.HasRole(RoleUser))
}

func TestCanAccess(t *testing.T) {
	owner := &Identity{ID: "u-1", Roles: []Role{RoleUser}}
	other := &Identity{ID: "u-2", Roles: []Role{RoleUser}}
	admin := &Identity{ID: "u-3", Roles: []Role{RoleUser, RoleAdmin}}

	tests := []struct {
		name     string
		identity *Identity
		ownerID  string
		want     bool
	}{
		{"owner", owner, "u-1", true},
		{"non owner", other, "u-1", false},
		{"admin non owner", admin, "u-1", true},
		{"nil identity", nil, "u-1", false},
		{"empty ids never match", &Identity{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccess(tt.identity, tt.ownerID))
		})
	}
}

func TestIdentity_Clone(t *testing.T) {
	original := &Identity{ID: "u-1", Roles: []Role{RoleUser}}
	clone := original.Clone()
	clone.Roles[0] = RoleAdmin
	assert.Equal(t, RoleUser, original.Roles[0])

	var nilIdentity *Identity
	assert.Nil(t, nilIdentity.Clone())
}

func TestIdentity_JSONHidesPasswordHash(t *testing.T) {
	data, err := json.Marshal(&Identity{ID: "u-1", Email: "a@b.c", PasswordHash: "$2a$secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "password")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestErrors(t *testing.T) {
	err := InvalidInput("Empty email")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "Empty email", ValidationMessage(err, "fallback"))
	assert.Equal(t, "fallback", ValidationMessage(ErrInvalidInput, "fallback"))

	assert.True(t, IsCredentialError(ErrBadCredentials))
	assert.True(t, IsCredentialError(ErrUnknownIdentity))
	assert.True(t, IsCredentialError(err))
	assert.False(t, IsCredentialError(ErrForbidden))
}
