package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/tasklist/pkg/audit"
	"github.com/platinummonkey/tasklist/pkg/observability"
)

// dummyPassword is hashed once at startup so that logins for unknown emails
// still pay for a full hash verification.
const dummyPassword = "tasklist-dummy-password"

// Authenticator registers identities and exchanges credentials for tokens
type Authenticator struct {
	store     CredentialStore
	hasher    PasswordHasher
	tokens    *TokenManager
	logger    *observability.Logger
	audit     audit.Logger
	dummyHash string
	now       func() time.Time
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(store CredentialStore, hasher PasswordHasher, tokens *TokenManager, logger *observability.Logger, auditLogger audit.Logger) (*Authenticator, error) {
	if store == nil || hasher == nil || tokens == nil {
		return nil, fmt.Errorf("store, hasher and token manager are required")
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if auditLogger == nil {
		auditLogger = audit.NoOp()
	}

	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Authenticator{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger.WithField("component", "authenticator"),
		audit:     auditLogger,
		dummyHash: dummyHash,
		now:       time.Now,
	}, nil
}

// Register creates a new identity holding the User role. The username is
// the email.
func (a *Authenticator) Register(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, InvalidInput("Empty email")
	}
	if strings.TrimSpace(password) == "" {
		return nil, InvalidInput("Empty password")
	}

	_, err := a.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		a.audit.LogAuthentication(ctx, audit.EventTypeAuthRegister, "", email, audit.EventStatusFailure, "email already registered")
		return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, email)
	case !errors.Is(err, ErrUnknownIdentity):
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	identity := &Identity{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// A concurrent registration of the same email surfaces here as
	// ErrDuplicateIdentity from the store.
	if err := a.store.Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	if err := a.store.AddRole(ctx, identity.ID, RoleUser); err != nil {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}
	identity.Roles = []Role{RoleUser}

	a.logger.WithField("user_id", identity.ID).Info("identity registered")
	a.audit.LogAuthentication(ctx, audit.EventTypeAuthRegister, identity.ID, identity.Email, audit.EventStatusSuccess, "identity registered")

	return identity, nil
}

// Authenticate verifies email and password and issues a token.
//
// Unknown emails, wrong passwords and empty input return ErrUnknownIdentity,
// ErrBadCredentials and ErrInvalidInput respectively; callers must not
// reveal which one occurred.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*IssuedToken, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		a.loginFailed(ctx, email, "missing credentials")
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	identity, err := a.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUnknownIdentity) {
			_, _ = a.hasher.Verify(password, a.dummyHash)
			a.loginFailed(ctx, email, "unknown identity")
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	ok, err := a.hasher.Verify(password, identity.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		a.loginFailed(ctx, email, "password mismatch")
		return nil, ErrBadCredentials
	}

	roles, err := a.store.RolesOf(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	token, err := a.tokens.Issue(identity, roles)
	if err != nil {
		return nil, err
	}

	a.logger.WithFields(map[string]interface{}{
		"user_id":  identity.ID,
		"token_id": token.TokenID,
	}).Info("token issued")
	a.audit.LogAuthentication(ctx, audit.EventTypeAuthLogin, identity.ID, identity.Email, audit.EventStatusSuccess, "token issued")

	return token, nil
}

func (a *Authenticator) loginFailed(ctx context.Context, email, reason string) {
	a.logger.WithField("reason", reason).Warn("login failed")
	a.audit.LogAuthentication(ctx, audit.EventTypeAuthLoginFailed, "", email, audit.EventStatusFailure, reason)
}
