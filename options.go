package blobsync

import (
	"log/slog"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
)

// WithFilesystem sets the filesystem source directories are read from.
// This is mainly useful with an in-memory filesystem in tests.
func WithFilesystem(fs billy.Filesystem) blobtypes.Option {
	return func(c *blobtypes.PipelineConfig) {
		c.Filesystem = fs
	}
}

// WithLogger sets the logger for run lifecycle events.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) blobtypes.Option {
	return func(c *blobtypes.PipelineConfig) {
		c.Logger = logger
	}
}

// WithScanParallelism sets how many files are read concurrently while staging.
// Default is the number of CPUs.
func WithScanParallelism(n int) blobtypes.Option {
	return func(c *blobtypes.PipelineConfig) {
		if n > 0 {
			c.ScanParallelism = n
		}
	}
}
