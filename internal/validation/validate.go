package validation

import (
	"fmt"
	"os"
	"unicode"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
)

const (
	// MaxConcurrency is the largest accepted concurrency limit.
	MaxConcurrency = 100

	// MaxBlobNameLength is the longest accepted blob name in bytes.
	MaxBlobNameLength = 1024
)

// ValidateRunConfig checks that every string field is set, that the concurrency
// limit is in range and that the source directory exists on fs.
func ValidateRunConfig(fs billy.Filesystem, cfg blobtypes.RunConfig) error {
	required := []struct {
		field string
		value string
	}{
		{"container", cfg.ContainerName},
		{"source directory", cfg.SourceDirectory},
		{"destination prefix", cfg.DestinationPrefix},
		{"account", cfg.AccountID},
		{"credential", cfg.AccountCredential},
	}
	for _, r := range required {
		if r.value == "" {
			return errors.NewValidationError(r.field, "is required")
		}
	}

	if err := ValidateConcurrency(cfg.Concurrency()); err != nil {
		return err
	}

	return ValidateSourceDirectory(fs, cfg.SourceDirectory)
}

// ValidateSourceDirectory checks that path exists and is a directory.
func ValidateSourceDirectory(fs billy.Filesystem, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewError("validate", errors.ErrSourceNotFound).
				WithMessage(fmt.Sprintf("folder path not found: %s", path))
		}
		return errors.NewError("validate", fmt.Errorf("%w: %w", errors.ErrInvalidInput, err)).
			WithMessage(fmt.Sprintf("cannot access folder path %s", path))
	}
	if !info.IsDir() {
		return errors.NewValidationError("source directory", fmt.Sprintf("%s is not a directory", path))
	}
	return nil
}

// ValidateConcurrency checks that limit is within 1..MaxConcurrency.
func ValidateConcurrency(limit int) error {
	if limit <= 0 {
		return errors.NewValidationError("concurrency", "must be positive")
	}
	if limit > MaxConcurrency {
		return errors.NewValidationError("concurrency", fmt.Sprintf("cannot exceed %d", MaxConcurrency))
	}
	return nil
}

// ValidateBlobName checks that a computed blob name can be stored.
func ValidateBlobName(name string) error {
	if name == "" {
		return errors.NewError("validateBlobName", errors.ErrInvalidBlobName).
			WithMessage("blob name cannot be empty")
	}

	if len(name) > MaxBlobNameLength {
		return errors.NewError("validateBlobName", errors.ErrInvalidBlobName).
			WithBlob(name).
			WithMessage(fmt.Sprintf("blob name cannot exceed %d bytes", MaxBlobNameLength))
	}

	if hasControlCharacters(name) {
		return errors.NewError("validateBlobName", errors.ErrInvalidBlobName).
			WithBlob(name).
			WithMessage("blob name cannot contain control characters")
	}

	return nil
}

func hasControlCharacters(s string) bool {
	for _, char := range s {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
