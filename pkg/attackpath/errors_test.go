package attackpath

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	err := InvalidParameters("FindPaths", "maxHops %d outside [1, %d]", 0, HardMaxHops)

	if !IsInvalidParameters(err) {
		t.Error("expected invalid parameters kind")
	}
	if IsGraphUnavailable(err) {
		t.Error("invalid parameters must not match graph unavailable")
	}
	want := "FindPaths: invalid traversal parameters (maxHops 0 outside [1, 20])"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestGraphUnavailableWrapsCause(t *testing.T) {
	cause := fmt.Errorf("neighbors of %s: %w", "A", context.DeadlineExceeded)
	err := GraphUnavailable("FindPaths", cause)

	if !errors.Is(err, ErrGraphUnavailable) {
		t.Error("expected ErrGraphUnavailable")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to remain reachable")
	}

	var apErr *Error
	if !errors.As(err, &apErr) || apErr.Op != "FindPaths" {
		t.Fatalf("errors.As failed: %v", err)
	}

	if again := GraphUnavailable("Analyze", err); again != err {
		t.Error("GraphUnavailable should not double wrap")
	}
}

func TestErrorIsNil(t *testing.T) {
	err := &Error{Op: "x", Kind: ErrMalformedPath}
	if err.Is(nil) {
		t.Error("Is(nil) should be false")
	}
	if err.Unwrap() != nil {
		t.Error("Unwrap() should be nil without cause")
	}
}
