package compiler

import "fmt"

// CompileError is one accumulated compile-time diagnostic, reported as
// `[Line N] message` per spec.md §7. Compile errors accumulate via
// hashicorp/go-multierror rather than aborting at the first one found
// (spec.md §7's propagation policy).
type CompileError struct {
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[Line %d] %s", e.Line, e.Message)
}

func newError(line int, format string, args ...any) *CompileError {
	return &CompileError{Line: line, Message: fmt.Sprintf(format, args...)}
}
