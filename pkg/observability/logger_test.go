package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		assert.Zero(t, buf.Len())
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		entry := decodeEntry(t, &buf)
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "info message", entry["message"])
	})

	t.Run("warn logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Warn("warn message")
		assert.NotZero(t, buf.Len())
	})

	t.Run("error logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Error("error message")
		assert.NotZero(t, buf.Len())
	})
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("key", "value").WithFields(map[string]interface{}{
		"key1": "value1",
		"key2": 42,
	}).Info("message")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"])
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("boom")).Error("something went wrong")
	entry := decodeEntry(t, &buf)
	assert.Equal(t, "boom", entry["error"])

	assert.Same(t, logger, logger.WithError(nil))
}

func TestLogger_Formatters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	tests := []struct {
		name string
		log  func()
		want string
	}{
		{"Debugf", func() { logger.Debugf("test %s %d", "string", 42) }, "test string 42"},
		{"Infof", func() { logger.Infof("test %d", 123) }, "test 123"},
		{"Warnf", func() { logger.Warnf("warning %s", "test") }, "warning test"},
		{"Errorf", func() { logger.Errorf("error %v", "test") }, "error test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()
			assert.Equal(t, tt.want, decodeEntry(t, &buf)["message"])
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLogLevel(" WARNING "))
	assert.Equal(t, ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, InfoLevel, ParseLogLevel("chatty"))
}

func TestContextHelpers(t *testing.T) {
	t.Run("RequestID", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-123")
		assert.Equal(t, "req-123", GetRequestID(ctx))
	})

	t.Run("UserID", func(t *testing.T) {
		ctx := WithUserID(context.Background(), "user-456")
		assert.Equal(t, "user-456", GetUserID(ctx))
	})

	t.Run("FromContext", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		ctx := WithLogger(context.Background(), logger)
		ctx = WithRequestID(ctx, "req-123")
		ctx = WithUserID(ctx, "user-456")

		FromContext(ctx).Info("test message")

		entry := decodeEntry(t, &buf)
		assert.Equal(t, "req-123", entry["request_id"])
		assert.Equal(t, "user-456", entry["user_id"])
	})

	t.Run("GetLogger falls back to a default", func(t *testing.T) {
		assert.NotNil(t, GetLogger(context.Background()))
	})
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
}
