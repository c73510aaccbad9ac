package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"op only", NewError("scan", base), "blobsync.scan: boom"},
		{"container", NewContainerError("store", "c1", base), "blobsync.store container c1: boom"},
		{"container and blob", NewBlobError("store", "c1", "backup/a.txt", base), "blobsync.store c1/backup/a.txt: boom"},
		{"blob only", NewError("scan", base).WithBlob("backup/a.txt"), "blobsync.scan blob backup/a.txt: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := NewBlobError("store", "c1", "k", ErrAccessDenied).WithMessage("put rejected")

	assert.True(t, errors.Is(err, ErrAccessDenied))
	assert.True(t, IsAccessDenied(err))
	assert.False(t, IsContainerNotFound(err))
	assert.Contains(t, err.Error(), "put rejected")
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("containerName", "must not be empty")

	assert.True(t, IsInvalidInput(err))
	assert.Equal(t, "validate", err.Op)
	assert.Contains(t, err.Error(), "containerName: must not be empty")
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, ""},
		{NewValidationError("x", "y"), CodeInvalidInput},
		{fmt.Errorf("wrap: %w", ErrSourceNotFound), CodeNotFound},
		{NewContainerError("store", "c", ErrContainerNotFound), CodeNotFound},
		{ErrAccessDenied, CodeForbidden},
		{ErrInvalidCredentials, CodeUnauthorized},
		{NewError("scan", ErrListFailed), CodeListFailed},
		{ErrExecutionFailed, CodeExecutionFailed},
		{errors.New("other"), CodeUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeOf(tt.err), "error: %v", tt.err)
	}
}
