// Package blobtypes provides shared type definitions for the blobsync module.
package blobtypes

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"
)

// DefaultConcurrency is the number of uploads allowed in flight when a run
// does not configure its own limit.
const DefaultConcurrency = 10

// BlobStore is the storage client boundary used by a run.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Store writes payload under blobName in the given container.
	Store(ctx context.Context, container, blobName string, payload []byte) error
}

// BlobStoreFunc adapts an ordinary function to the BlobStore interface.
type BlobStoreFunc func(ctx context.Context, container, blobName string, payload []byte) error

// Store calls f(ctx, container, blobName, payload).
func (f BlobStoreFunc) Store(ctx context.Context, container, blobName string, payload []byte) error {
	return f(ctx, container, blobName, payload)
}

// UploadJob is one file staged for upload.
// Jobs are created by the scanner and consumed exactly once by the executor.
type UploadJob struct {
	// Index is the position of the file in the directory listing, dense from 0
	Index int

	// FileName is the display name of the file
	FileName string

	// BlobName is the destination prefix joined with FileName
	BlobName string

	// Payload holds the complete file contents
	Payload []byte

	// Size is the payload length in bytes
	Size int64
}

// RunConfig holds the inputs of a single run.
type RunConfig struct {
	// ContainerName is the destination container
	ContainerName string

	// SourceDirectory is the local directory whose direct children are uploaded
	SourceDirectory string

	// DestinationPrefix is prepended to every file name with a "/" separator
	DestinationPrefix string

	// AccountID identifies the storage account
	AccountID string

	// AccountCredential is the secret paired with AccountID
	AccountCredential string

	// ConcurrencyLimit bounds in-flight uploads. Zero means DefaultConcurrency.
	ConcurrencyLimit int
}

// Concurrency returns the effective concurrency limit.
func (c RunConfig) Concurrency() int {
	if c.ConcurrencyLimit <= 0 {
		return DefaultConcurrency
	}
	return c.ConcurrencyLimit
}

// Outcome is the terminal state of a run.
type Outcome string

// Terminal states of a run.
const (
	// OutcomeCompleted means every staged file was uploaded
	OutcomeCompleted Outcome = "completed"

	// OutcomeCompletedWithErrors means the run finished but some uploads failed
	OutcomeCompletedWithErrors Outcome = "completed_with_errors"

	// OutcomeCancelled means cancellation was observed before all jobs finished
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeFailed means validation or a run-level error stopped the run
	OutcomeFailed Outcome = "failed"

	// OutcomeNoFiles means the source directory had no regular files
	OutcomeNoFiles Outcome = "no_files"
)

// FileFailure records a per-file upload failure.
type FileFailure struct {
	// Index is the job index of the failed file
	Index int

	// FileName is the display name of the file
	FileName string

	// Err is the cause reported by the storage client
	Err error
}

// RunResult summarizes one run.
// UploadedCount + len(Failed) + Skipped always equals TotalFiles.
type RunResult struct {
	// RunID uniquely identifies the run in logs
	RunID string

	// TotalFiles is the number of staged jobs
	TotalFiles int

	// UploadedCount is the number of successful store calls
	UploadedCount int

	// Failed lists per-file failures ordered by job index
	Failed []FileFailure

	// Skipped is the number of jobs not attempted due to cancellation
	Skipped int

	// Cancelled reports whether cancellation was observed during the run
	Cancelled bool

	// PeakConcurrency is the highest number of uploads that were in flight at once
	PeakConcurrency int

	// Outcome is the terminal state
	Outcome Outcome

	// Elapsed is the wall-clock duration of the run
	Elapsed time.Duration
}

// PipelineConfig holds the settings applied by functional options when a
// pipeline is constructed.
type PipelineConfig struct {
	// Filesystem is where source directories are read from. Defaults to the host filesystem.
	Filesystem billy.Filesystem

	// Logger receives run lifecycle logs. Nil disables logging.
	Logger *slog.Logger

	// ScanParallelism bounds concurrent file reads. Zero means the number of CPUs.
	ScanParallelism int
}

// Option configures a pipeline.
type Option func(*PipelineConfig)
