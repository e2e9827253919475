package storage

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound           = errors.New("node not found")
	ErrVulnerabilityNotFound  = errors.New("vulnerability not found")
	ErrDuplicateNode          = errors.New("duplicate node")
	ErrDuplicateEdge          = errors.New("duplicate edge")
	ErrDuplicateVulnerability = errors.New("duplicate vulnerability")
	ErrInvalidNode            = errors.New("invalid node")
	ErrInvalidEdge            = errors.New("invalid edge")
	ErrInvalidVulnerability   = errors.New("invalid vulnerability")
	ErrStorageClosed          = errors.New("storage is closed")
)

// StorageError provides structured error information for storage operations.
type StorageError struct {
	Op      string // Operation that failed (e.g., "AddNode", "Neighbors")
	Entity  string // Entity type (e.g., "node", "edge", "vulnerability")
	ID      string // Entity key (if applicable)
	Field   string // Field name (for attribute checks)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	subject := e.Op
	for _, part := range []string{e.Entity, e.ID} {
		if part != "" {
			subject += " " + part
		}
	}
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s (field %s): %v", subject, e.Field, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s (%s): %v", subject, e.Context, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", subject, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *StorageError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building StorageErrors.
type ErrorBuilder struct {
	err StorageError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StorageError{Op: op}}
}

// Node sets the entity to "node" with the given key.
func (b *ErrorBuilder) Node(id string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Edge sets the entity to "edge" identified by its endpoints.
func (b *ErrorBuilder) Edge(from, to string) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = from + "->" + to
	return b
}

// Vulnerability sets the entity to "vulnerability" with the given id.
func (b *ErrorBuilder) Vulnerability(id string) *ErrorBuilder {
	b.err.Entity = "vulnerability"
	b.err.ID = id
	return b
}

// Field sets the offending field name.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed StorageError.
func (b *ErrorBuilder) Build() *StorageError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(op, id string) error {
	return NewError(op).Node(id).Cause(ErrNodeNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrVulnerabilityNotFound)
}

// IsClosed returns true if the error indicates the storage is closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrStorageClosed)
}
