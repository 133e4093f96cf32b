package engine

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/exprbox/exprbox/internal/sandbox"
)

// Kind classifies evaluation failures for callers that map them to
// transport responses.
type Kind string

const (
	// KindCompile: the expression source does not parse.
	KindCompile Kind = "compile"
	// KindTimeout: the evaluation deadline or cancellation fired.
	KindTimeout Kind = "timeout"
	// KindExpression: the expression threw, including boundary
	// resolution failures surfaced as exceptions.
	KindExpression Kind = "expression"
	// KindUnavailable: no runtime could be acquired.
	KindUnavailable Kind = "unavailable"
	// KindInternal: host-side wiring or runtime failure.
	KindInternal Kind = "internal"
)

// Error wraps an evaluation failure with its classification.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from err, defaulting to internal.
func KindOf(err error) Kind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindInternal
}

// classify maps raw runtime failures onto the error taxonomy.
func classify(err error) *Error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return &Error{Kind: KindTimeout, Err: err}
	}

	var thrown *goja.Exception
	if errors.As(err, &thrown) {
		return &Error{Kind: KindExpression, Err: err}
	}

	if errors.Is(err, sandbox.ErrPoolClosed) || errors.Is(err, sandbox.ErrAcquireTimeout) {
		return &Error{Kind: KindUnavailable, Err: err}
	}

	return &Error{Kind: KindInternal, Err: err}
}
