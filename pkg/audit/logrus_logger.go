package audit

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogrusLogger writes audit events as JSON lines through a dedicated
// logrus instance, separate from the application log.
type LogrusLogger struct {
	eventBuilder
	out    *logrus.Logger
	closer io.Closer
}

// NewLogrusLogger creates an audit logger writing to w. A nil writer means stdout.
func NewLogrusLogger(w io.Writer) *LogrusLogger {
	if w == nil {
		w = os.Stdout
	}

	out := logrus.New()
	out.SetOutput(w)
	out.SetLevel(logrus.InfoLevel)
	out.SetFormatter(&logrus.JSONFormatter{
		DisableTimestamp: true,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})

	l := &LogrusLogger{out: out}
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		l.closer = c
	}
	l.eventBuilder = eventBuilder{log: l.Log}
	return l
}

// Log writes a single audit event
func (l *LogrusLogger) Log(ctx context.Context, event *AuditEvent) error {
	fields := logrus.Fields{
		"audit":      true,
		"timestamp":  event.Timestamp,
		"event_type": string(event.EventType),
		"status":     string(event.Status),
	}
	if event.UserID != "" {
		fields["user_id"] = event.UserID
	}
	if event.Username != "" {
		fields["username"] = event.Username
	}
	if event.ResourceType != "" {
		fields["resource_type"] = string(event.ResourceType)
	}
	if event.ResourceID != "" {
		fields["resource_id"] = event.ResourceID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	for k, v := range event.Metadata {
		fields["meta."+k] = v
	}

	entry := l.out.WithFields(fields)
	if event.Status == EventStatusSuccess {
		entry.Info(event.Message)
	} else {
		entry.Warn(event.Message)
	}
	return nil
}

// Close closes the underlying writer when the logger owns one
func (l *LogrusLogger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
