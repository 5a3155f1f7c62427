package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with its stack. Call it
// directly in a defer statement; the panic is not re-raised.
//
//	defer observability.RecoverPanic(logger, "cleanup job")
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", fmt.Sprint(r)).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// MustRecover converts a recovered panic value to an error, or nil
//
//	defer func() { err = observability.MustRecover(recover()) }()
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
