package todo

import (
	"context"
	"fmt"

	"github.com/platinummonkey/tasklist/pkg/audit"
	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/observability"
)

// AccessChecker decides whether an identity may act on an owned resource
type AccessChecker interface {
	CheckAccess(identity *auth.Identity, ownerID string) error
}

// Service applies ownership-or-admin access control in front of a Repository
type Service struct {
	repo   Repository
	access AccessChecker
	logger *observability.Logger
	audit  audit.Logger
}

// NewService creates a new todo service
func NewService(repo Repository, access AccessChecker, logger *observability.Logger, auditLogger audit.Logger) *Service {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if auditLogger == nil {
		auditLogger = audit.NoOp()
	}
	return &Service{
		repo:   repo,
		access: access,
		logger: logger.WithField("component", "todo_service"),
		audit:  auditLogger,
	}
}

// Get returns one todo if the requester owns it or is an admin
func (s *Service) Get(ctx context.Context, requester *auth.Identity, id string) (*Todo, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, requester, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListAll returns every todo. Callers gate this on the Admin role.
func (s *Service) ListAll(ctx context.Context) ([]*Todo, error) {
	return s.repo.ListAll(ctx)
}

// ListMine returns the requester's todos
func (s *Service) ListMine(ctx context.Context, requester *auth.Identity) ([]*Todo, error) {
	if requester == nil {
		return nil, auth.ErrUnauthenticated
	}
	return s.repo.ListForOwner(ctx, requester.ID)
}

// Create stores a new todo owned by the requester
func (s *Service) Create(ctx context.Context, requester *auth.Identity, in Input) (*Todo, error) {
	if requester == nil {
		return nil, auth.ErrUnauthenticated
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &Todo{
		OwnerID:     requester.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.status(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	s.audit.LogDataMutation(ctx, audit.EventTypeDataTodoCreate, requester.ID, audit.ResourceTypeTodo, created.ID, "todo created")
	return created, nil
}

// Update overwrites title and description of an accessible todo, and its
// status when one is given
func (s *Service) Update(ctx context.Context, requester *auth.Identity, id string, in Input) (*Todo, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, requester, t); err != nil {
		return nil, err
	}

	t.Title = in.Title
	t.Description = in.Description
	if in.Status != nil {
		t.Status = *in.Status
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.audit.LogDataMutation(ctx, audit.EventTypeDataTodoUpdate, requester.ID, audit.ResourceTypeTodo, id, "todo updated")
	return t, nil
}

// Delete removes an accessible todo
func (s *Service) Delete(ctx context.Context, requester *auth.Identity, id string) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, requester, t); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.LogDataMutation(ctx, audit.EventTypeDataTodoDelete, requester.ID, audit.ResourceTypeTodo, id, "todo deleted")
	return nil
}

func (s *Service) authorize(ctx context.Context, requester *auth.Identity, t *Todo) error {
	if requester == nil {
		return auth.ErrUnauthenticated
	}
	if err := s.access.CheckAccess(requester, t.OwnerID); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id": requester.ID,
			"todo_id": t.ID,
		}).Warn("access denied")
		s.audit.LogAuthorization(ctx, audit.EventTypeAuthzAccessDenied, requester.ID, audit.ResourceTypeTodo, t.ID, audit.EventStatusDenied, "not owner or admin")
		return err
	}
	return nil
}
