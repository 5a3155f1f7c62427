package todo

import (
	"context"
	"time"
)

// Repository persists todos.
//
// Lists are ordered by Created ascending. Create assigns the id and both
// timestamps; Update overwrites title, description and status and never
// moves Updated backwards. GetByID, Update and Delete return ErrNotFound
// for unknown ids.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Todo, error)
	ListAll(ctx context.Context) ([]*Todo, error)
	ListForOwner(ctx context.Context, ownerID string) ([]*Todo, error)
	Create(ctx context.Context, t *Todo) (*Todo, error)
	Update(ctx context.Context, t *Todo) error
	Delete(ctx context.Context, id string) error
}

// LaterOf returns the later of now and previous, so Updated stays monotonic
// even if the clock steps back.
func LaterOf(now, previous time.Time) time.Time {
	if now.Before(previous) {
		return previous
	}
	return now
}
