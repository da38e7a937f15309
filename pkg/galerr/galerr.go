// Package galerr defines the stable error kinds surfaced by every galdi
// operation. Fatal errors cross the boundary of the core packages as a single
// *Error value so that command-line front ends and the envelope layer can
// render {kind, message, path} without knowing anything about the package
// that actually failed.
package galerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is a stable, user-facing error tag. Kind values are never renumbered
// or repurposed once shipped, since downstream tooling may switch on them.
type Kind string

const (
	// KindUsage indicates a bad CLI invocation.
	KindUsage Kind = "UsageError"
	// KindIO indicates a file or directory read failure.
	KindIO Kind = "IoError"
	// KindSchema indicates malformed or invalid input snapshot/diff JSON.
	KindSchema Kind = "SchemaError"
	// KindInvariant indicates an internal consistency violation. It is
	// always a bug, never a recoverable condition.
	KindInvariant Kind = "InvariantError"
	// KindAlgorithmMismatch indicates a diff was attempted between two
	// snapshots built with different checksum algorithms.
	KindAlgorithmMismatch Kind = "AlgorithmMismatch"
	// KindCancelled indicates a scan was cancelled by its caller.
	KindCancelled Kind = "CancelledError"
)

// Error is the single error type returned across every galdi package
// boundary for fatal conditions. It carries a stable Kind, an optional Path
// for errors anchored to a specific filesystem location, and the underlying
// cause (captured with a stack trace via github.com/pkg/errors).
type Error struct {
	Kind  Kind
	Path  string
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.cause)
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs an *Error of the given kind wrapping message as the cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, cause: errors.New(message)}
}

// Wrap constructs an *Error of the given kind, annotating cause with message
// and a stack trace captured at the call site.
func Wrap(kind Kind, cause error, message string) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.Wrap(cause, message)}
}

// WithPath returns a copy of e with Path set. It is a no-op on a nil
// receiver so that call sites can chain it unconditionally.
func (e *Error) WithPath(path string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Path = path
	return &cp
}

// Is reports whether err is a *Error of the given kind, unwrapping as
// necessary.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// As reports whether err (or something it wraps) is a *Error, and if so
// assigns it to *target. It is a thin wrapper over errors.As so callers
// outside this package never need to import github.com/pkg/errors directly
// just to unwrap a galdi error.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// ExitCode maps an error (which may or may not be a *Error) to the process's
// exit code: 0 for success, 1 for I/O or schema errors, 2 for usage errors,
// 3 for algorithm mismatches. Unrecognized errors
// (including InvariantError, a bug indicator) default to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if !errors.As(err, &e) {
		return 1
	}
	switch e.Kind {
	case KindUsage:
		return 2
	case KindAlgorithmMismatch:
		return 3
	default:
		return 1
	}
}
