package vm

import "fmt"

// RuntimeError is returned by Run when a runtime fault propagates all
// the way out of the call stack uncaught, per spec.md §7's rule that an
// uncaught exception is a fatal VM error, not a Go panic.
type RuntimeError struct {
	Message string
	Line    int
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[Line %d] runtime error: %s", e.Line, e.Message)
	}
	return "runtime error: " + e.Message
}
