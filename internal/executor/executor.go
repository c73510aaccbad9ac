// Package executor dispatches staged upload jobs to a blob store under a
// concurrency bound.
//
// Jobs are started in index order. Before a job takes a slot, and again once it
// holds one, the run's cancellation token is checked; a job that observes
// cancellation at either point never reaches the store. Store failures are
// recorded per job and never stop sibling uploads.
package executor

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/cancel"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/notify"
)

// Executor runs upload jobs with concurrency control.
type Executor struct {
	store  blobtypes.BlobStore
	sink   notify.Sink
	token  *cancel.Token
	logger *slog.Logger

	maxConcurrency int
	sem            *semaphore.Weighted
	inFlight       atomic.Int64
	peak           atomic.Int64
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an executor that allows at most maxConcurrency store calls
// at once. A non-positive limit uses blobtypes.DefaultConcurrency.
func NewExecutor(
	store blobtypes.BlobStore,
	sink notify.Sink,
	token *cancel.Token,
	maxConcurrency int,
	opts ...Option,
) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = blobtypes.DefaultConcurrency
	}
	if token == nil {
		token = cancel.New()
	}

	e := &Executor{
		store:          store,
		sink:           sink,
		token:          token,
		maxConcurrency: maxConcurrency,
		sem:            semaphore.NewWeighted(int64(maxConcurrency)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result contains the outcome of one Execute call.
type Result struct {
	// Total is the number of jobs handed to Execute
	Total int

	// Uploaded is the number of successful store calls
	Uploaded int

	// Failed lists failed jobs ordered by index
	Failed []blobtypes.FileFailure

	// Skipped is the number of jobs that never reached the store due to cancellation
	Skipped int

	// Cancelled reports whether either checkpoint observed cancellation
	Cancelled bool

	// PeakConcurrency is the highest number of store calls in flight at once
	PeakConcurrency int

	// Duration is how long the dispatch took
	Duration time.Duration
}

// run holds the shared state of one Execute call.
type run struct {
	container string
	total     int

	mu       sync.Mutex
	failed   []blobtypes.FileFailure
	panicErr error

	uploaded  atomic.Int64
	skipped   atomic.Int64
	cancelled atomic.Bool
	notice    sync.Once
}

// Execute stores every job under its blob name in container.
//
// Execute takes ownership of jobs and drops each reference once the job has
// been dispatched, so a payload stays in memory only while it is queued or in
// flight. It returns after every dispatched upload has finished. The returned
// error is non-nil only when the dispatch itself failed, for example when a
// store call panicked; per-file failures are reported in Result.Failed.
func (e *Executor) Execute(ctx context.Context, container string, jobs []*blobtypes.UploadJob) (*Result, error) {
	start := time.Now()
	r := &run{container: container, total: len(jobs)}

	if r.total == 0 {
		e.sink.Info(notify.MsgNoFiles)
		return &Result{Duration: time.Since(start)}, nil
	}

	var wg sync.WaitGroup

	for i, job := range jobs {
		jobs[i] = nil

		// A cancelled run takes no further slots.
		if e.token.IsCancelled() {
			e.observeCancel(r)
			r.skipped.Add(int64(r.total - i))
			break
		}

		if err := e.sem.Acquire(ctx, 1); err != nil {
			e.observeCancel(r)
			r.skipped.Add(int64(r.total - i))
			break
		}

		wg.Add(1)
		go func(job *blobtypes.UploadJob) {
			defer wg.Done()
			defer e.sem.Release(1)
			defer e.recoverPanic(r, job)

			// Cancellation may have arrived while waiting for the slot.
			if e.token.IsCancelled() {
				e.observeCancel(r)
				r.skipped.Add(1)
				return
			}

			e.upload(ctx, r, job)
		}(job)
	}

	wg.Wait()

	slices.SortFunc(r.failed, func(a, b blobtypes.FileFailure) int {
		return cmp.Compare(a.Index, b.Index)
	})

	stats := e.GetStats()
	result := &Result{
		Total:           r.total,
		Uploaded:        int(r.uploaded.Load()),
		Failed:          r.failed,
		Skipped:         int(r.skipped.Load()),
		Cancelled:       r.cancelled.Load(),
		PeakConcurrency: stats.PeakConcurrency,
		Duration:        time.Since(start),
	}

	if e.logger != nil {
		e.logger.DebugContext(ctx, "dispatch finished",
			"total", result.Total,
			"uploaded", result.Uploaded,
			"failed", len(result.Failed),
			"skipped", result.Skipped,
			"max_concurrency", stats.MaxConcurrency,
			"peak_concurrency", stats.PeakConcurrency,
			"duration", result.Duration,
		)
	}

	return result, r.panicErr
}

func (e *Executor) upload(ctx context.Context, r *run, job *blobtypes.UploadJob) {
	if err := e.storeJob(ctx, r.container, job); err != nil {
		e.sink.Error(fmt.Sprintf("failed to upload file %s: %v", job.FileName, err))
		e.recordFailure(r, job, err)
		if e.logger != nil {
			e.logger.WarnContext(ctx, "upload failed",
				"container", r.container,
				"blob", job.BlobName,
				"error", err,
			)
		}
		return
	}

	r.uploaded.Add(1)
	e.sink.Progress(float64(job.Index+1) / float64(r.total) * 100)
}

func (e *Executor) storeJob(ctx context.Context, container string, job *blobtypes.UploadJob) error {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		peak := e.peak.Load()
		if n <= peak || e.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return e.store.Store(ctx, container, job.BlobName, job.Payload)
}

// recoverPanic turns a panicking store call into a failed job and a run-level error.
func (e *Executor) recoverPanic(r *run, job *blobtypes.UploadJob) {
	rec := recover()
	if rec == nil {
		return
	}
	err := errors.NewBlobError("store", r.container, job.BlobName,
		fmt.Errorf("%w: panic: %v", errors.ErrExecutionFailed, rec))
	e.recordFailure(r, job, err)

	r.mu.Lock()
	if r.panicErr == nil {
		r.panicErr = err
	}
	r.mu.Unlock()
}

func (e *Executor) recordFailure(r *run, job *blobtypes.UploadJob, err error) {
	r.mu.Lock()
	r.failed = append(r.failed, blobtypes.FileFailure{
		Index:    job.Index,
		FileName: job.FileName,
		Err:      err,
	})
	r.mu.Unlock()
}

// observeCancel marks the run cancelled and emits the notice once.
func (e *Executor) observeCancel(r *run) {
	r.cancelled.Store(true)
	r.notice.Do(func() {
		e.sink.Info(notify.MsgCancelled)
	})
}

// Stats provides statistics about the executor's current state.
type Stats struct {
	// MaxConcurrency is the maximum allowed concurrent uploads
	MaxConcurrency int

	// CurrentConcurrency is the number of store calls in progress
	CurrentConcurrency int

	// AvailableSlots is the number of unused concurrency slots
	AvailableSlots int

	// PeakConcurrency is the highest CurrentConcurrency seen since creation
	PeakConcurrency int
}

// GetStats returns current executor statistics.
func (e *Executor) GetStats() Stats {
	current := int(e.inFlight.Load())
	return Stats{
		MaxConcurrency:     e.maxConcurrency,
		CurrentConcurrency: current,
		AvailableSlots:     e.maxConcurrency - current,
		PeakConcurrency:    int(e.peak.Load()),
	}
}
