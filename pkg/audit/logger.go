package audit

import (
	"context"
	"time"

	"github.com/platinummonkey/tasklist/pkg/observability"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// LogAuthentication logs a login or registration outcome
	LogAuthentication(ctx context.Context, eventType EventType, userID, username string, status EventStatus, message string) error

	// LogAuthorization logs an access decision on a resource
	LogAuthorization(ctx context.Context, eventType EventType, userID string, resourceType ResourceType, resourceID string, status EventStatus, message string) error

	// LogDataMutation logs a create, update or delete of a resource
	LogDataMutation(ctx context.Context, eventType EventType, userID string, resourceType ResourceType, resourceID string, message string) error

	// Close flushes any buffered events
	Close() error
}

// contextKey is the type for context keys
type contextKey string

// AuditLoggerKey is the context key for the audit logger
const AuditLoggerKey contextKey = "audit_logger"

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, AuditLoggerKey, logger)
}

// FromContext retrieves the audit logger from context
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NoOp()
}

// NoOp returns a logger that discards every event
func NoOp() Logger {
	return noOpLogger{}
}

type noOpLogger struct{}

func (noOpLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }
func (noOpLogger) LogAuthentication(ctx context.Context, eventType EventType, userID, username string, status EventStatus, message string) error {
	return nil
}
func (noOpLogger) LogAuthorization(ctx context.Context, eventType EventType, userID string, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	return nil
}
func (noOpLogger) LogDataMutation(ctx context.Context, eventType EventType, userID string, resourceType ResourceType, resourceID string, message string) error {
	return nil
}
func (noOpLogger) Close() error { return nil }

// eventBuilder fills the fields shared by every helper; concrete loggers
// embed it and only implement Log.
type eventBuilder struct {
	log func(ctx context.Context, event *AuditEvent) error
	now func() time.Time
}

func (b eventBuilder) base(ctx context.Context, eventType EventType, status EventStatus, message string) *AuditEvent {
	now := time.Now
	if b.now != nil {
		now = b.now
	}
	return &AuditEvent{
		Timestamp: now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: observability.GetRequestID(ctx),
		Message:   message,
	}
}

func (b eventBuilder) LogAuthentication(ctx context.Context, eventType EventType, userID, username string, status EventStatus, message string) error {
	event := b.base(ctx, eventType, status, message)
	event.UserID = userID
	event.Username = username
	event.ResourceType = ResourceTypeToken
	return b.log(ctx, event)
}

func (b eventBuilder) LogAuthorization(ctx context.Context, eventType EventType, userID string, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	event := b.base(ctx, eventType, status, message)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	return b.log(ctx, event)
}

func (b eventBuilder) LogDataMutation(ctx context.Context, eventType EventType, userID string, resourceType ResourceType, resourceID string, message string) error {
	event := b.base(ctx, eventType, EventStatusSuccess, message)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	return b.log(ctx, event)
}
