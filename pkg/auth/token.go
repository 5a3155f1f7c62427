package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenTTL is the fixed lifetime of an access token
	TokenTTL = 8 * time.Hour
	// MinSigningKeyLength is the minimum HMAC key size in bytes (256 bits)
	MinSigningKeyLength = 32
)

// TokenConfig holds the process-wide token settings
type TokenConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   string
}

// tokenClaims is the JWT payload
type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Roles []Role `json:"roles"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 signed access tokens.
// It is immutable after construction and safe for concurrent use.
type TokenManager struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.SigningKey) < MinSigningKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes", MinSigningKeyLength)
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("token issuer is required")
	}
	if cfg.Audience == "" {
		return nil, fmt.Errorf("token audience is required")
	}

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	return &TokenManager{
		key:      key,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      TokenTTL,
		now:      time.Now,
	}, nil
}

// Issue mints a signed token for identity carrying one entry per role
func (tm *TokenManager) Issue(identity *Identity, roles []Role) (*IssuedToken, error) {
	if identity == nil || identity.ID == "" {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidInput)
	}

	now := tm.now().UTC()
	expiresAt := now.Add(tm.ttl)
	tokenID := uuid.NewString()

	claims := tokenClaims{
		Email: identity.Email,
		Name:  identity.Username,
		Roles: append([]Role{}, roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   identity.ID,
			Audience:  jwt.ClaimStrings{tm.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate verifies signature, algorithm, issuer, audience and expiry and
// returns the claim set. Every failure wraps ErrUnauthenticated.
func (tm *TokenManager) Validate(token string) (*ClaimSet, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return tm.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithAudience(tm.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	cs := &ClaimSet{
		Subject:  claims.Subject,
		Email:    claims.Email,
		TokenID:  claims.ID,
		Username: claims.Name,
		Roles:    claims.Roles,
		Issuer:   claims.Issuer,
		Audience: claims.Audience,
	}
	if claims.IssuedAt != nil {
		cs.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		cs.ExpiresAt = claims.ExpiresAt.Time
	}
	return cs, nil
}
