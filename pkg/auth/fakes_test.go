package auth

import (
	"context"
	"errors"
	"sync"
)

// fakeStore is a minimal CredentialStore for package tests
type fakeStore struct {
	mu         sync.Mutex
	identities map[string]*Identity
	roles      map[string][]Role
	registry   map[Role]bool
	failWith   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		identities: make(map[string]*Identity),
		roles:      make(map[string][]Role),
		registry:   make(map[Role]bool),
	}
}

func (s *fakeStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, id := range s.identities {
		if NormalizeEmail(id.Email) == NormalizeEmail(email) {
			return id.Clone(), nil
		}
	}
	return nil, ErrUnknownIdentity
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity, ok := s.identities[id]; ok {
		return identity.Clone(), nil
	}
	return nil, ErrUnknownIdentity
}

func (s *fakeStore) Create(ctx context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.identities {
		if NormalizeEmail(existing.Email) == NormalizeEmail(identity.Email) {
			return ErrDuplicateIdentity
		}
	}
	s.identities[identity.ID] = identity.Clone()
	return nil
}

func (s *fakeStore) RolesOf(ctx context.Context, identityID string) ([]Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Role(nil), s.roles[identityID]...), nil
}

func (s *fakeStore) AddRole(ctx context.Context, identityID string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[identityID]; !ok {
		return ErrUnknownIdentity
	}
	if !HasRole(s.roles[identityID], role) {
		s.roles[identityID] = append(s.roles[identityID], role)
	}
	return nil
}

func (s *fakeStore) EnsureRole(ctx context.Context, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[role] = true
	return nil
}

func (s *fakeStore) RoleExists(ctx context.Context, role Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry[role], nil
}

var errStoreDown = errors.New("store unavailable")

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func newTestTokenManager(t interface{ Fatalf(string, ...interface{}) }) *TokenManager {
	tm, err := NewTokenManager(TokenConfig{
		SigningKey: testSigningKey,
		Issuer:     "tasklist-test",
		Audience:   "tasklist-clients",
	})
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return tm
}
