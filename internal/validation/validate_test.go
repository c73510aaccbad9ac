package validation

import (
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
)

func validConfig() blobtypes.RunConfig {
	return blobtypes.RunConfig{
		ContainerName:     "c1",
		SourceDirectory:   "/data",
		DestinationPrefix: "backup",
		AccountID:         "acct",
		AccountCredential: "secret",
	}
}

func TestValidateRunConfig(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("/data", 0o755))
	require.NoError(t, util.WriteFile(fs, "/file.txt", []byte("x"), 0o644))

	tests := []struct {
		name    string
		mutate  func(*blobtypes.RunConfig)
		wantErr error
		errMsg  string
	}{
		{"valid", func(*blobtypes.RunConfig) {}, nil, ""},
		{"default concurrency", func(c *blobtypes.RunConfig) { c.ConcurrencyLimit = 0 }, nil, ""},
		{"empty container", func(c *blobtypes.RunConfig) { c.ContainerName = "" }, errors.ErrInvalidInput, "container: is required"},
		{"empty source", func(c *blobtypes.RunConfig) { c.SourceDirectory = "" }, errors.ErrInvalidInput, "source directory: is required"},
		{"empty prefix", func(c *blobtypes.RunConfig) { c.DestinationPrefix = "" }, errors.ErrInvalidInput, "destination prefix: is required"},
		{"empty account", func(c *blobtypes.RunConfig) { c.AccountID = "" }, errors.ErrInvalidInput, "account: is required"},
		{"empty credential", func(c *blobtypes.RunConfig) { c.AccountCredential = "" }, errors.ErrInvalidInput, "credential: is required"},
		{"concurrency too high", func(c *blobtypes.RunConfig) { c.ConcurrencyLimit = 101 }, errors.ErrInvalidInput, "cannot exceed 100"},
		{"missing source", func(c *blobtypes.RunConfig) { c.SourceDirectory = "/nope" }, errors.ErrSourceNotFound, "folder path not found"},
		{"source is a file", func(c *blobtypes.RunConfig) { c.SourceDirectory = "/file.txt" }, errors.ErrInvalidInput, "not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := ValidateRunConfig(fs, cfg)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateConcurrency(t *testing.T) {
	tests := []struct {
		limit   int
		wantErr bool
	}{
		{1, false},
		{10, false},
		{100, false},
		{0, true},
		{-1, true},
		{101, true},
	}

	for _, tt := range tests {
		err := ValidateConcurrency(tt.limit)
		if tt.wantErr {
			assert.ErrorIs(t, err, errors.ErrInvalidInput, "limit %d", tt.limit)
		} else {
			assert.NoError(t, err, "limit %d", tt.limit)
		}
	}
}

func TestValidateBlobName(t *testing.T) {
	tests := []struct {
		name      string
		blob      string
		wantError bool
		errMsg    string
	}{
		{"valid", "backup/a.txt", false, ""},
		{"valid unicode", "backup/résumé.pdf", false, ""},
		{"valid max length", strings.Repeat("a", 1024), false, ""},
		{"empty", "", true, "blob name cannot be empty"},
		{"too long", strings.Repeat("a", 1025), true, "cannot exceed 1024 bytes"},
		{"control character", "backup/a\x00.txt", true, "control characters"},
		{"newline", "backup/a\n.txt", true, "control characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBlobName(tt.blob)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidBlobName)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
