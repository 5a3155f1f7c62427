package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/platinummonkey/tasklist/pkg/auth"
)

// Identities is an in-memory auth.CredentialStore
type Identities struct {
	mu         sync.RWMutex
	identities map[string]*auth.Identity // by id
	byEmail    map[string]string         // normalized email -> id
	roles      map[string][]auth.Role    // identity id -> roles
	registry   map[auth.Role]struct{}
}

// NewIdentities creates an empty identity store
func NewIdentities() *Identities {
	return &Identities{
		identities: make(map[string]*auth.Identity),
		byEmail:    make(map[string]string),
		roles:      make(map[string][]auth.Role),
		registry:   make(map[auth.Role]struct{}),
	}
}

// FindByEmail looks up an identity case-insensitively
func (s *Identities) FindByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrUnknownIdentity
	}
	return s.identityLocked(id), nil
}

// FindByID looks up an identity by id
func (s *Identities) FindByID(ctx context.Context, id string) (*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.identities[id]; !ok {
		return nil, auth.ErrUnknownIdentity
	}
	return s.identityLocked(id), nil
}

func (s *Identities) identityLocked(id string) *auth.Identity {
	identity := s.identities[id].Clone()
	identity.Roles = append([]auth.Role(nil), s.roles[id]...)
	return identity
}

// Create stores a new identity along with any roles it carries
func (s *Identities) Create(ctx context.Context, identity *auth.Identity) error {
	if identity == nil || identity.ID == "" || identity.Email == "" {
		return auth.InvalidInput("identity id and email are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := auth.NormalizeEmail(identity.Email)
	if _, exists := s.byEmail[key]; exists {
		return fmt.Errorf("%w: %s", auth.ErrDuplicateIdentity, identity.Email)
	}
	if _, exists := s.identities[identity.ID]; exists {
		return fmt.Errorf("%w: id %s", auth.ErrDuplicateIdentity, identity.ID)
	}

	stored := identity.Clone()
	stored.Roles = nil
	s.identities[identity.ID] = stored
	s.byEmail[key] = identity.ID
	for _, role := range identity.Roles {
		s.addRoleLocked(identity.ID, role)
	}
	return nil
}

// RolesOf returns the roles held by an identity
func (s *Identities) RolesOf(ctx context.Context, identityID string) ([]auth.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.identities[identityID]; !ok {
		return nil, auth.ErrUnknownIdentity
	}
	return append([]auth.Role(nil), s.roles[identityID]...), nil
}

// AddRole grants a role, registering it if needed
func (s *Identities) AddRole(ctx context.Context, identityID string, role auth.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[identityID]; !ok {
		return auth.ErrUnknownIdentity
	}
	s.addRoleLocked(identityID, role)
	return nil
}

func (s *Identities) addRoleLocked(identityID string, role auth.Role) {
	s.registry[role] = struct{}{}
	if !auth.HasRole(s.roles[identityID], role) {
		s.roles[identityID] = append(s.roles[identityID], role)
	}
}

// EnsureRole registers a role
func (s *Identities) EnsureRole(ctx context.Context, role auth.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[role] = struct{}{}
	return nil
}

// RoleExists reports whether a role is registered
func (s *Identities) RoleExists(ctx context.Context, role auth.Role) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[role]
	return ok, nil
}

// Count returns the number of stored identities
func (s *Identities) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities)
}
