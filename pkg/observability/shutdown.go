package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

type namedShutdown struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager runs registered cleanup steps in reverse registration order
// under one deadline.
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration

	mu    sync.Mutex
	funcs []namedShutdown
	done  bool
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a cleanup step. Later registrations run first, so resources
// close before the things they depend on.
func (sm *ShutdownManager) Register(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, namedShutdown{name: name, fn: fn})
}

// Shutdown runs every step once. Subsequent calls are no-ops.
func (sm *ShutdownManager) Shutdown(parent context.Context) error {
	sm.mu.Lock()
	if sm.done {
		sm.mu.Unlock()
		return nil
	}
	sm.done = true
	funcs := append([]namedShutdown(nil), sm.funcs...)
	sm.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), sm.timeout)
	defer cancel()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		step := funcs[i]
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("%s: shutdown timeout reached", step.name))
			continue
		}
		if err := step.fn(ctx); err != nil {
			sm.logger.WithError(err).WithField("step", step.name).Error("Shutdown step failed")
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			continue
		}
		sm.logger.WithField("step", step.name).Debug("Shutdown step complete")
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sm.logger.Info("Graceful shutdown complete")
	return nil
}
