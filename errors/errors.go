// Package errors provides error types and handling for blob upload runs.
package errors

import (
	"errors"
	"fmt"
)

// Error represents an upload operation error with context about the operation that failed.
type Error struct {
	// Op is the operation that failed (e.g., "validate", "scan", "store")
	Op string

	// Container is the storage container name (if applicable)
	Container string

	// Blob is the destination blob name (if applicable)
	Blob string

	// Err is the underlying error from the storage SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Container != "" && e.Blob != "" {
		return fmt.Sprintf("blobsync.%s %s/%s: %v", e.Op, e.Container, e.Blob, e.Err)
	}
	if e.Container != "" {
		return fmt.Sprintf("blobsync.%s container %s: %v", e.Op, e.Container, e.Err)
	}
	if e.Blob != "" {
		return fmt.Sprintf("blobsync.%s blob %s: %v", e.Op, e.Blob, e.Err)
	}
	return fmt.Sprintf("blobsync.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBlob adds blob context to an existing error.
func (e *Error) WithBlob(blob string) *Error {
	e.Blob = blob
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewContainerError creates a new Error with container context.
func NewContainerError(op, container string, err error) *Error {
	return &Error{
		Op:        op,
		Container: container,
		Err:       err,
	}
}

// NewBlobError creates a new Error with container and blob context.
func NewBlobError(op, container, blob string, err error) *Error {
	return &Error{
		Op:        op,
		Container: container,
		Blob:      blob,
		Err:       err,
	}
}

// NewValidationError creates an ErrInvalidInput error describing a rejected field.
func NewValidationError(field, message string) *Error {
	return &Error{
		Op:  "validate",
		Err: fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, message),
	}
}

// Sentinel errors for common upload failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("blobsync: invalid input")

	// ErrSourceNotFound indicates that the source directory does not exist
	ErrSourceNotFound = errors.New("blobsync: source directory not found")

	// ErrListFailed indicates that the source directory could not be listed
	ErrListFailed = errors.New("blobsync: directory listing failed")

	// ErrContainerNotFound indicates that the destination container does not exist
	ErrContainerNotFound = errors.New("blobsync: container not found")

	// ErrAccessDenied indicates that access to the container or blob is denied
	ErrAccessDenied = errors.New("blobsync: access denied")

	// ErrInvalidBlobName indicates that a computed blob name is not acceptable
	ErrInvalidBlobName = errors.New("blobsync: invalid blob name")

	// ErrInvalidCredentials indicates that the account credential pair was rejected
	ErrInvalidCredentials = errors.New("blobsync: invalid credentials")

	// ErrExecutionFailed indicates that the upload execution itself failed irrecoverably
	ErrExecutionFailed = errors.New("blobsync: execution failed")
)

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsContainerNotFound checks if an error indicates a missing container.
func IsContainerNotFound(err error) bool {
	return errors.Is(err, ErrContainerNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}
