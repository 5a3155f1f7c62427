package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/todo"
)

type todoEntry struct {
	todo *todo.Todo
	seq  uint64 // insertion order, breaks Created ties
}

// Todos is an in-memory todo.Repository
type Todos struct {
	mu    sync.RWMutex
	todos map[string]*todoEntry
	seq   uint64
	now   func() time.Time
}

// NewTodos creates an empty todo repository
func NewTodos() *Todos {
	return &Todos{
		todos: make(map[string]*todoEntry),
		now:   time.Now,
	}
}

// GetByID returns a todo
func (s *Todos) GetByID(ctx context.Context, id string) (*todo.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.todos[id]
	if !ok {
		return nil, todo.ErrNotFound
	}
	return entry.todo.Clone(), nil
}

// ListAll returns every todo ordered by creation
func (s *Todos) ListAll(ctx context.Context) ([]*todo.Todo, error) {
	return s.list(func(*todo.Todo) bool { return true }), nil
}

// ListForOwner returns the todos of one owner ordered by creation
func (s *Todos) ListForOwner(ctx context.Context, ownerID string) ([]*todo.Todo, error) {
	return s.list(func(t *todo.Todo) bool { return t.OwnerID == ownerID }), nil
}

func (s *Todos) list(match func(*todo.Todo) bool) []*todo.Todo {
	s.mu.RLock()
	entries := make([]todoEntry, 0, len(s.todos))
	for _, entry := range s.todos {
		if match(entry.todo) {
			entries = append(entries, todoEntry{todo: entry.todo.Clone(), seq: entry.seq})
		}
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.todo.Created.Equal(b.todo.Created) {
			return a.todo.Created.Before(b.todo.Created)
		}
		return a.seq < b.seq
	})

	out := make([]*todo.Todo, len(entries))
	for i := range entries {
		out[i] = entries[i].todo
	}
	return out
}

// Create stores a new todo with a fresh id and timestamps
func (s *Todos) Create(ctx context.Context, t *todo.Todo) (*todo.Todo, error) {
	if t == nil {
		return nil, auth.InvalidInput("todo is required")
	}

	now := s.now().UTC()
	stored := t.Clone()
	stored.ID = uuid.NewString()
	stored.Created = now
	stored.Updated = now
	stored.Archived = false

	s.mu.Lock()
	s.seq++
	s.todos[stored.ID] = &todoEntry{todo: stored, seq: s.seq}
	s.mu.Unlock()

	return stored.Clone(), nil
}

// Update overwrites title, description and status
func (s *Todos) Update(ctx context.Context, t *todo.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.todos[t.ID]
	if !ok {
		return todo.ErrNotFound
	}
	entry.todo.Title = t.Title
	entry.todo.Description = t.Description
	entry.todo.Status = t.Status
	entry.todo.Updated = todo.LaterOf(s.now().UTC(), entry.todo.Updated)

	t.OwnerID = entry.todo.OwnerID
	t.Created = entry.todo.Created
	t.Updated = entry.todo.Updated
	return nil
}

// Delete removes a todo
func (s *Todos) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[id]; !ok {
		return todo.ErrNotFound
	}
	delete(s.todos, id)
	return nil
}
