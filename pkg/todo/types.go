package todo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/tasklist/pkg/auth"
)

// ErrNotFound is returned when no todo has the requested id
var ErrNotFound = errors.New("todo not found")

// Status is the progress state of a todo
type Status int

const (
	StatusToDo Status = iota
	StatusInProgress
	StatusResolved
)

var statusNames = [...]string{"ToDo", "InProgress", "Resolved"}

func (s Status) String() string {
	if s.Valid() {
		return statusNames[s]
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s >= StatusToDo && s <= StatusResolved
}

// ParseStatus accepts a status name (case-insensitive) or its ordinal
func ParseStatus(value string) (Status, error) {
	value = strings.TrimSpace(value)
	for i, name := range statusNames {
		if strings.EqualFold(name, value) {
			return Status(i), nil
		}
	}
	if n, err := strconv.Atoi(value); err == nil && Status(n).Valid() {
		return Status(n), nil
	}
	return 0, fmt.Errorf("unknown status %q", value)
}

// MarshalJSON renders the status by name
func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the name or the ordinal
func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Todo is a task record owned by one identity
type Todo struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Status      Status
	Created     time.Time
	Updated     time.Time
	Archived    bool
}

// Clone returns a copy of t
func (t *Todo) Clone() *Todo {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// View is the external representation of a todo
type View struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	Archived    bool      `json:"archived"`
}

// ToView converts a todo to its external representation
func ToView(t *Todo) View {
	return View{
		ID:          t.ID,
		UserID:      t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Created:     t.Created.UTC(),
		Updated:     t.Updated.UTC(),
		Archived:    t.Archived,
	}
}

// ToViews converts a list of todos
func ToViews(todos []*Todo) []View {
	views := make([]View, 0, len(todos))
	for _, t := range todos {
		views = append(views, ToView(t))
	}
	return views
}

// Input is the caller-supplied content of a todo
type Input struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      *Status `json:"status,omitempty"`
}

// Validate checks required fields. A missing status means ToDo.
func (in *Input) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return auth.InvalidInput("title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return auth.InvalidInput("description is required")
	}
	if in.Status != nil && !in.Status.Valid() {
		return auth.InvalidInput("status is invalid")
	}
	return nil
}

func (in *Input) status() Status {
	if in.Status == nil {
		return StatusToDo
	}
	return *in.Status
}
