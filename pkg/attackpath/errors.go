package attackpath

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every analysis component.
var (
	// ErrInvalidTraversalParameters rejects a request before any graph access.
	ErrInvalidTraversalParameters = errors.New("invalid traversal parameters")
	// ErrGraphUnavailable means the graph access layer failed or timed out.
	// No partial result accompanies it.
	ErrGraphUnavailable = errors.New("graph unavailable")
	// ErrMalformedPath rejects a path that cannot be constructed.
	ErrMalformedPath = errors.New("malformed attack path")
)

// Error provides structured information about a failed analysis operation.
// Kind is one of the sentinels above; Cause is the underlying failure, if any.
type Error struct {
	Op      string // Operation that failed (e.g., "FindPaths")
	Kind    error
	Context string // Additional context
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is this error's kind or matches its cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return target == e.Kind || errors.Is(e.Cause, target)
}

// InvalidParameters builds an ErrInvalidTraversalParameters error.
func InvalidParameters(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrInvalidTraversalParameters, Context: fmt.Sprintf(format, args...)}
}

// GraphUnavailable wraps a graph access failure. An error that already
// carries the kind is returned unchanged.
func GraphUnavailable(op string, cause error) error {
	if errors.Is(cause, ErrGraphUnavailable) {
		return cause
	}
	return &Error{Op: op, Kind: ErrGraphUnavailable, Cause: cause}
}

// MalformedPath builds an ErrMalformedPath error.
func MalformedPath(format string, args ...any) error {
	return &Error{Op: "New", Kind: ErrMalformedPath, Context: fmt.Sprintf(format, args...)}
}

// IsInvalidParameters reports whether err rejects the request's parameters.
func IsInvalidParameters(err error) bool {
	return errors.Is(err, ErrInvalidTraversalParameters)
}

// IsGraphUnavailable reports whether err is a graph access failure.
func IsGraphUnavailable(err error) bool {
	return errors.Is(err, ErrGraphUnavailable)
}
