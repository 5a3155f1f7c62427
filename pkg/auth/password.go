package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// Supported password hashing algorithms
const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

// PasswordHasher produces and verifies salted one-way password hashes
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) (bool, error)
}

// BcryptHasher hashes passwords with bcrypt
type BcryptHasher struct {
	Cost int
}

// Hash returns the bcrypt hash of plaintext
func (h BcryptHasher) Hash(plaintext string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares plaintext against a bcrypt hash
func (h BcryptHasher) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to compare password: %w", err)
	}
	return true, nil
}

// Argon2idHasher hashes passwords with argon2id
type Argon2idHasher struct {
	Params *argon2id.Params
}

// Hash returns the encoded argon2id hash of plaintext
func (h Argon2idHasher) Hash(plaintext string) (string, error) {
	params := h.Params
	if params == nil {
		params = argon2id.DefaultParams
	}
	hash, err := argon2id.CreateHash(plaintext, params)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// Verify compares plaintext against an encoded argon2id hash
func (h Argon2idHasher) Verify(plaintext, hash string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(plaintext, hash)
	if err != nil {
		return false, fmt.Errorf("failed to compare password: %w", err)
	}
	return match, nil
}

// MultiHasher hashes with one algorithm and verifies any supported format,
// so a store may hold hashes produced under an earlier configuration.
type MultiHasher struct {
	primary  PasswordHasher
	bcrypt   BcryptHasher
	argon2id Argon2idHasher
}

// NewPasswordHasher returns a hasher that produces hashes with algorithm
func NewPasswordHasher(algorithm string) (*MultiHasher, error) {
	m := &MultiHasher{}
	switch strings.ToLower(algorithm) {
	case "", HashBcrypt:
		m.primary = m.bcrypt
	case HashArgon2id:
		m.primary = m.argon2id
	default:
		return nil, fmt.Errorf("unsupported password hash algorithm: %s", algorithm)
	}
	return m, nil
}

// Hash hashes plaintext with the configured algorithm
func (m *MultiHasher) Hash(plaintext string) (string, error) {
	return m.primary.Hash(plaintext)
}

// Verify dispatches on the hash prefix
func (m *MultiHasher) Verify(plaintext, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return m.argon2id.Verify(plaintext, hash)
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return m.bcrypt.Verify(plaintext, hash)
	default:
		return false, fmt.Errorf("unrecognized password hash format")
	}
}
