package errors

import "errors"

// ErrorCode is a stable, string-based classification of a run failure.
// Codes are meant for log attributes and process exit mapping.
type ErrorCode string

const (
	// CodeInvalidInput indicates the run configuration was rejected.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a source directory or container does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeForbidden indicates the credential lacks permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// CodeUnauthorized indicates the credential pair was not accepted.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeListFailed indicates the source directory could not be enumerated.
	CodeListFailed ErrorCode = "LIST_FAILED"

	// CodeExecutionFailed indicates the upload stage failed as a whole.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// CodeOf classifies err against the package sentinels.
// It returns the empty code for a nil error.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidBlobName):
		return CodeInvalidInput
	case errors.Is(err, ErrSourceNotFound), errors.Is(err, ErrContainerNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAccessDenied):
		return CodeForbidden
	case errors.Is(err, ErrInvalidCredentials):
		return CodeUnauthorized
	case errors.Is(err, ErrListFailed):
		return CodeListFailed
	case errors.Is(err, ErrExecutionFailed):
		return CodeExecutionFailed
	default:
		return CodeUnknown
	}
}
