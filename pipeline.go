package blobsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/cancel"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/executor"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/notify"
)

// Pipeline validates a run, stages the source directory and uploads it.
// A Pipeline holds no per-run state and may run several times, including concurrently.
type Pipeline struct {
	store  blobtypes.BlobStore
	config blobtypes.PipelineConfig
}

// New creates a Pipeline that writes to store.
func New(store blobtypes.BlobStore, opts ...blobtypes.Option) *Pipeline {
	cfg := blobtypes.PipelineConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = localfs.New()
	}

	return &Pipeline{
		store:  store,
		config: cfg,
	}
}

// Run performs one upload run and reports its progress to sink.
//
// The token is shared with the caller, who may cancel it at any time. Run does
// not clear the token when it starts: callers reusing a token across runs must
// call Reset before each run, and a token cancelled before Run is called stops
// the run before any upload. A nil sink discards notifications and a nil token
// cannot be cancelled.
//
// The returned result is never nil. The error is non-nil only when validation
// or a run-level failure ended the run; per-file failures are reported through
// the sink and recorded in the result.
func (p *Pipeline) Run(
	ctx context.Context,
	cfg blobtypes.RunConfig,
	token *cancel.Token,
	sink notify.Sink,
) (*blobtypes.RunResult, error) {
	r := &runState{
		start:  time.Now(),
		result: &blobtypes.RunResult{RunID: uuid.NewString()},
		sink:   sink,
		token:  token,
	}
	if r.sink == nil {
		r.sink = notify.Discard
	}
	if r.token == nil {
		r.token = cancel.New()
	}
	if p.config.Logger != nil {
		r.logger = p.config.Logger.With("run_id", r.result.RunID)
	}

	if err := validation.ValidateRunConfig(p.config.Filesystem, cfg); err != nil {
		return r.fail(ctx, err)
	}

	r.sink.Info(fmt.Sprintf("Uploading files from %s to %s/%s in container %s...",
		cfg.SourceDirectory, cfg.AccountID, cfg.DestinationPrefix, cfg.ContainerName))
	if r.logger != nil {
		r.logger.InfoContext(ctx, "run started",
			"container", cfg.ContainerName,
			"source", cfg.SourceDirectory,
			"prefix", cfg.DestinationPrefix,
			"concurrency", cfg.Concurrency(),
		)
	}

	if r.token.IsCancelled() {
		return r.cancelled(ctx)
	}

	scan := scanner.New(p.config.Filesystem, r.sink,
		scanner.WithParallelism(p.config.ScanParallelism),
		scanner.WithLogger(r.logger),
	)
	jobs, err := scan.Scan(ctx, cfg.SourceDirectory, cfg.DestinationPrefix)
	if err != nil {
		if stderrors.Is(err, context.Canceled) && ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		return r.fail(ctx, err)
	}
	r.result.TotalFiles = len(jobs)

	if r.token.IsCancelled() {
		r.result.Skipped = len(jobs)
		return r.cancelled(ctx)
	}

	exec := executor.NewExecutor(p.store, r.sink, r.token, cfg.Concurrency(),
		executor.WithLogger(r.logger),
	)
	out, err := exec.Execute(ctx, cfg.ContainerName, jobs)
	if out != nil {
		r.result.UploadedCount = out.Uploaded
		r.result.Failed = out.Failed
		r.result.Skipped = out.Skipped
		r.result.Cancelled = out.Cancelled
		r.result.PeakConcurrency = out.PeakConcurrency
	}
	if err != nil {
		return r.fail(ctx, errors.NewContainerError("upload", cfg.ContainerName, err).
			WithMessage("failed to upload files"))
	}

	switch {
	case r.result.TotalFiles == 0:
		return r.finish(ctx, blobtypes.OutcomeNoFiles), nil

	case out.Cancelled:
		// The executor has already emitted the cancellation notice.
		return r.finish(ctx, blobtypes.OutcomeCancelled), nil

	case len(out.Failed) > 0:
		res := r.finish(ctx, blobtypes.OutcomeCompletedWithErrors)
		r.sink.Info(fmt.Sprintf("upload finished in %s: %d of %d files uploaded, %d failed",
			formatElapsed(res.Elapsed), res.UploadedCount, res.TotalFiles, len(res.Failed)))
		return res, nil

	default:
		res := r.finish(ctx, blobtypes.OutcomeCompleted)
		r.sink.Info(fmt.Sprintf("%s in %s", notify.MsgAllUploaded, formatElapsed(res.Elapsed)))
		r.sink.Progress(100)
		r.sink.Info(notify.MsgAllUploaded)
		return res, nil
	}
}

// runState carries one run through its terminal transitions.
type runState struct {
	start  time.Time
	result *blobtypes.RunResult
	sink   notify.Sink
	token  *cancel.Token
	logger *slog.Logger
}

func (r *runState) finish(ctx context.Context, outcome blobtypes.Outcome) *blobtypes.RunResult {
	r.result.Outcome = outcome
	r.result.Elapsed = time.Since(r.start)

	if r.logger != nil {
		r.logger.InfoContext(ctx, "run finished",
			"outcome", outcome,
			"total", r.result.TotalFiles,
			"uploaded", r.result.UploadedCount,
			"failed", len(r.result.Failed),
			"skipped", r.result.Skipped,
			"peak_concurrency", r.result.PeakConcurrency,
			"elapsed", r.result.Elapsed,
		)
	}
	return r.result
}

func (r *runState) cancelled(ctx context.Context) (*blobtypes.RunResult, error) {
	r.result.Cancelled = true
	r.sink.Info(notify.MsgCancelled)
	return r.finish(ctx, blobtypes.OutcomeCancelled), nil
}

func (r *runState) fail(ctx context.Context, err error) (*blobtypes.RunResult, error) {
	r.sink.Error(err.Error())
	if r.logger != nil {
		r.logger.ErrorContext(ctx, "run failed",
			"error", err,
			"error_code", errors.CodeOf(err),
		)
	}
	return r.finish(ctx, blobtypes.OutcomeFailed), err
}

func formatElapsed(d time.Duration) string {
	return d.Round(10 * time.Microsecond).String()
}
