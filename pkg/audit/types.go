package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin       EventType = "auth.login"
	EventTypeAuthLoginFailed EventType = "auth.login_failed"
	EventTypeAuthRegister    EventType = "auth.register"
	EventTypeAuthTokenReject EventType = "auth.token_reject"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"

	// Data mutation events
	EventTypeDataTodoCreate EventType = "data.todo_create"
	EventTypeDataTodoUpdate EventType = "data.todo_update"
	EventTypeDataTodoDelete EventType = "data.todo_delete"

	// Bootstrap events
	EventTypeAdminSeed EventType = "admin.seed"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeUser  ResourceType = "user"
	ResourceTypeTodo  ResourceType = "todo"
	ResourceTypeToken ResourceType = "token"
	ResourceTypeRole  ResourceType = "role"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`

	// Resource information
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	RequestID string `json:"request_id,omitempty"`

	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
