package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/tasklist/pkg/audit"
	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/observability"
	"github.com/platinummonkey/tasklist/pkg/storage/memory"
)

func newSeeder(store auth.CredentialStore, admin AdminConfig, auditLog audit.Logger) *Seeder {
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	return NewSeeder(store, auth.BcryptHasher{Cost: bcrypt.MinCost}, admin, logger, auditLog)
}

func TestSeed_CreatesAdministrator(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIdentities()
	auditLog := audit.NewMemoryLogger()

	result, err := newSeeder(store, AdminConfig{}, auditLog).Seed(ctx)
	require.NoError(t, err)
	assert.True(t, result.AdminCreated)
	assert.ElementsMatch(t, []auth.Role{auth.RoleUser, auth.RoleAdmin}, result.RolesGranted)

	for _, role := range auth.AllRoles() {
		exists, err := store.RoleExists(ctx, role)
		require.NoError(t, err)
		assert.True(t, exists, role)
	}

	admin, err := store.FindByEmail(ctx, DefaultAdminEmail)
	require.NoError(t, err)
	assert.Equal(t, DefaultAdminUsername, admin.Username)
	assert.NotEqual(t, DefaultAdminPassword, admin.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(DefaultAdminPassword)))
	assert.ElementsMatch(t, []auth.Role{auth.RoleUser, auth.RoleAdmin}, admin.Roles)

	events := auditLog.EventsOfType(audit.EventTypeAdminSeed)
	require.Len(t, events, 1)
	assert.Equal(t, admin.ID, events[0].UserID)
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIdentities()
	auditLog := audit.NewMemoryLogger()
	seeder := newSeeder(store, AdminConfig{}, auditLog)

	first, err := seeder.Seed(ctx)
	require.NoError(t, err)
	second, err := seeder.Seed(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.AdminID, second.AdminID)
	assert.False(t, second.AdminCreated)
	assert.Empty(t, second.RolesGranted)
	assert.Equal(t, 1, store.Count())
	assert.Len(t, auditLog.EventsOfType(audit.EventTypeAdminSeed), 1)
}

func TestSeed_RepairsMissingRole(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIdentities()
	require.NoError(t, store.Create(ctx, &auth.Identity{
		ID:           "existing-admin",
		Email:        "ADMIN@gmail.com",
		Username:     "admin",
		PasswordHash: "$2a$04$keep",
		Roles:        []auth.Role{auth.RoleUser},
	}))

	result, err := newSeeder(store, AdminConfig{}, nil).Seed(ctx)
	require.NoError(t, err)
	assert.False(t, result.AdminCreated)
	assert.Equal(t, "existing-admin", result.AdminID)
	assert.Equal(t, []auth.Role{auth.RoleAdmin}, result.RolesGranted)

	admin, err := store.FindByID(ctx, "existing-admin")
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$keep", admin.PasswordHash, "existing password must not be reset")
	assert.True(t, admin.HasRole(auth.RoleAdmin))
}

func TestSeed_CustomAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIdentities()

	_, err := newSeeder(store, AdminConfig{Email: "ops@example.com", Password: "S3cret!"}, nil).Seed(ctx)
	require.NoError(t, err)

	admin, err := store.FindByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, DefaultAdminUsername, admin.Username)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("S3cret!")))
}

type failingStore struct {
	*memory.Identities
}

func (failingStore) EnsureRole(ctx context.Context, role auth.Role) error {
	return errors.New("store offline")
}

func TestSeed_StoreFailure(t *testing.T) {
	_, err := newSeeder(failingStore{memory.NewIdentities()}, AdminConfig{}, nil).Seed(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store offline")
}
