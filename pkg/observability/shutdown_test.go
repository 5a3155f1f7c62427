package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, &bytes.Buffer{}), time.Second)

	var order []string
	for _, name := range []string{"store", "cache", "http"} {
		name := name
		sm.Register(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, []string{"http", "cache", "store"}, order)

	require.NoError(t, sm.Shutdown(context.Background()))
	assert.Len(t, order, 3, "second shutdown must not rerun steps")
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, &bytes.Buffer{}), time.Second)
	boom := errors.New("boom")

	ran := false
	sm.Register("after", func(ctx context.Context) error {
		ran = true
		return nil
	})
	sm.Register("failing", func(ctx context.Context) error { return boom })

	err := sm.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.True(t, ran, "a failing step must not stop the rest")
}

func TestShutdownManager_CancelledParentStillRuns(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, &bytes.Buffer{}), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	sm.Register("step", func(ctx context.Context) error {
		ran = true
		return ctx.Err()
	})

	require.NoError(t, sm.Shutdown(ctx))
	assert.True(t, ran)
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))

	err := func() (err error) {
		defer func() { err = MustRecover(recover()) }()
		panic("kaboom")
	}()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRecoverPanic_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	assert.NotPanics(t, func() {
		defer RecoverPanic(logger, "unit")
		panic("oops")
	})
	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), `"context":"unit"`)
}
