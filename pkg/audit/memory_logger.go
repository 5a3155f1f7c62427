package audit

import (
	"context"
	"sync"
)

// MemoryLogger keeps events in memory. Used by tests.
type MemoryLogger struct {
	eventBuilder
	mu     sync.Mutex
	events []AuditEvent
}

// NewMemoryLogger creates an empty in-memory audit logger
func NewMemoryLogger() *MemoryLogger {
	l := &MemoryLogger{}
	l.eventBuilder = eventBuilder{log: l.Log}
	return l
}

// Log records the event
func (l *MemoryLogger) Log(ctx context.Context, event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, *event)
	return nil
}

// Events returns a copy of the recorded events
func (l *MemoryLogger) Events() []AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEvent(nil), l.events...)
}

// EventsOfType returns the recorded events of one type
func (l *MemoryLogger) EventsOfType(eventType EventType) []AuditEvent {
	var out []AuditEvent
	for _, e := range l.Events() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (l *MemoryLogger) Close() error { return nil }
