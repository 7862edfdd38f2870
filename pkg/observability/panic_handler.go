package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers a panic in a deferred call and logs it with the
// panic value and stack trace. The panic is not re-raised, so background
// work like scheduled sweeps survives a bad iteration.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// RecoverPanicWithCallback is RecoverPanic plus a cleanup hook, for
// goroutines that must close channels or release locks on the way out.
func RecoverPanicWithCallback(logger *Logger, context string, callback func()) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
		if callback != nil {
			callback()
		}
	}
}

// MustRecover converts a recover() value to an error, nil when no panic
// occurred. Useful where the caller reports failures through an error
// channel rather than a logger.
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
