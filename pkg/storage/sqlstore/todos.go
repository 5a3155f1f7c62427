package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/todo"
)

// Todos is a todo.Repository backed by SQL. Lists are served from a read
// replica when one is configured.
type Todos struct {
	conn *ConnectionManager
	now  func() time.Time
}

// NewTodos creates a todo repository on conn
func NewTodos(conn *ConnectionManager) *Todos {
	return &Todos{conn: conn, now: time.Now}
}

const todoColumns = `id, owner_id, title, description, status, created_at, updated_at, archived`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTodo(row rowScanner) (*todo.Todo, error) {
	var t todo.Todo
	var status int
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &t.Created, &t.Updated, &t.Archived); err != nil {
		return nil, err
	}
	t.Status = todo.Status(status)
	t.Created = t.Created.UTC()
	t.Updated = t.Updated.UTC()
	return &t, nil
}

// timestamp truncates to the microsecond precision PostgreSQL keeps
func (s *Todos) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// GetByID returns a todo
func (s *Todos) GetByID(ctx context.Context, id string) (*todo.Todo, error) {
	row := s.conn.Primary().QueryRowContext(ctx,
		s.conn.Rebind(`SELECT `+todoColumns+` FROM todos WHERE id = $1`), id)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, todo.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return t, nil
}

// ListAll returns every todo ordered by creation
func (s *Todos) ListAll(ctx context.Context) ([]*todo.Todo, error) {
	return s.list(ctx, `SELECT `+todoColumns+` FROM todos ORDER BY created_at ASC, id ASC`)
}

// ListForOwner returns the todos of one owner ordered by creation
func (s *Todos) ListForOwner(ctx context.Context, ownerID string) ([]*todo.Todo, error) {
	return s.list(ctx, `SELECT `+todoColumns+` FROM todos WHERE owner_id = $1 ORDER BY created_at ASC, id ASC`, ownerID)
}

func (s *Todos) list(ctx context.Context, query string, args ...interface{}) ([]*todo.Todo, error) {
	rows, err := s.conn.Replica().QueryContext(ctx, s.conn.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]*todo.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// Create inserts a new todo with a fresh id and timestamps
func (s *Todos) Create(ctx context.Context, t *todo.Todo) (*todo.Todo, error) {
	if t == nil {
		return nil, auth.InvalidInput("todo is required")
	}

	now := s.timestamp()
	stored := t.Clone()
	stored.ID = uuid.NewString()
	stored.Created = now
	stored.Updated = now
	stored.Archived = false

	_, err := s.conn.Primary().ExecContext(ctx, s.conn.Rebind(`
		INSERT INTO todos (`+todoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`),
		stored.ID,
		stored.OwnerID,
		stored.Title,
		stored.Description,
		int(stored.Status),
		stored.Created,
		stored.Updated,
		stored.Archived,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert todo: %w", err)
	}
	return stored, nil
}

// Update overwrites title, description and status. Updated is stamped with
// the later of now and its previous value.
func (s *Todos) Update(ctx context.Context, t *todo.Todo) error {
	tx, err := s.conn.Primary().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ownerID string
	var created, previous time.Time
	err = tx.QueryRowContext(ctx,
		s.conn.Rebind(`SELECT owner_id, created_at, updated_at FROM todos WHERE id = $1`), t.ID,
	).Scan(&ownerID, &created, &previous)
	if errors.Is(err, sql.ErrNoRows) {
		return todo.ErrNotFound
	} else if err != nil {
		return fmt.Errorf("failed to load todo: %w", err)
	}

	updated := todo.LaterOf(s.timestamp(), previous.UTC())
	_, err = tx.ExecContext(ctx, s.conn.Rebind(`
		UPDATE todos SET title = $1, description = $2, status = $3, updated_at = $4
		WHERE id = $5`),
		t.Title, t.Description, int(t.Status), updated, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit todo update: %w", err)
	}

	t.OwnerID = ownerID
	t.Created = created.UTC()
	t.Updated = updated
	return nil
}

// Delete removes a todo
func (s *Todos) Delete(ctx context.Context, id string) error {
	res, err := s.conn.Primary().ExecContext(ctx, s.conn.Rebind(`DELETE FROM todos WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if n == 0 {
		return todo.ErrNotFound
	}
	return nil
}
