package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tasklist/pkg/observability"
)

func TestFromContext(t *testing.T) {
	t.Run("returns no-op without logger", func(t *testing.T) {
		logger := FromContext(context.Background())
		require.NotNil(t, logger)
		assert.NoError(t, logger.LogDataMutation(context.Background(), EventTypeDataTodoCreate, "u", ResourceTypeTodo, "t", ""))
	})

	t.Run("returns stored logger", func(t *testing.T) {
		mem := NewMemoryLogger()
		ctx := WithLogger(context.Background(), mem)
		assert.Same(t, mem, FromContext(ctx))
	})
}

func TestMemoryLogger(t *testing.T) {
	mem := NewMemoryLogger()
	ctx := observability.WithRequestID(context.Background(), "req-1")

	require.NoError(t, mem.LogAuthentication(ctx, EventTypeAuthLoginFailed, "", "a@b.c", EventStatusFailure, "bad credentials"))
	require.NoError(t, mem.LogAuthorization(ctx, EventTypeAuthzAccessDenied, "user-1", ResourceTypeTodo, "todo-1", EventStatusDenied, "not owner"))
	require.NoError(t, mem.LogDataMutation(ctx, EventTypeDataTodoDelete, "user-1", ResourceTypeTodo, "todo-1", "deleted"))

	events := mem.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, "a@b.c", events[0].Username)
	assert.Equal(t, ResourceTypeToken, events[0].ResourceType)
	assert.Equal(t, EventStatusDenied, events[1].Status)
	assert.Equal(t, "todo-1", events[1].ResourceID)
	assert.Equal(t, EventStatusSuccess, events[2].Status)
	assert.False(t, events[2].Timestamp.IsZero())

	assert.Len(t, mem.EventsOfType(EventTypeAuthzAccessDenied), 1)
}

func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusLogger(&buf)

	err := logger.LogAuthorization(context.Background(), EventTypeAuthzAccessDenied, "user-1", ResourceTypeTodo, "todo-9", EventStatusDenied, "access denied")
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, true, entry["audit"])
	assert.Equal(t, "authz.access_denied", entry["event_type"])
	assert.Equal(t, "denied", entry["status"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "todo", entry["resource_type"])
	assert.Equal(t, "todo-9", entry["resource_id"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "access denied", entry["message"])

	assert.NoError(t, logger.Close())
}

func TestAuditEvent_ToJSON(t *testing.T) {
	event := &AuditEvent{EventType: EventTypeAuthLogin, Status: EventStatusSuccess, UserID: "u-1"}
	data, err := event.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event_type":"auth.login"`)
	assert.NotContains(t, string(data), "resource_id")
}
