package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/cancel"
	blobErrors "github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/config"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/notify"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/stores/azurestore"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/stores/s3store"
)

// Process exit codes.
const (
	exitOK               = 0
	exitFailed           = 1
	exitCompletedWithErr = 2
	exitCancelled        = 3
)

// storeFactory builds the storage client for a run.
type storeFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blobtypes.BlobStore, error)

// app carries the process-level dependencies of the command tree.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	newStore storeFactory
	signals  func(chan<- os.Signal)
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:   stdout,
		stderr:   stderr,
		newStore: newStore,
		signals: func(c chan<- os.Signal) {
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		},
	}
}

// exitError carries a non-zero exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

func run(args []string, a *app) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintln(a.stderr, "error:", err)
		return exitFailed
	}
	return exitOK
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "blobsync",
		Short: "Upload a local directory to object storage",
		Long: `blobsync uploads every regular file directly inside a source directory to a
storage container under a destination prefix, with a bounded number of uploads
in flight. Press Ctrl+C once to stop after the uploads already in progress;
press it again to abort them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.AddCommand(newUploadCmd(a))
	return root
}

type uploadFlags struct {
	configPath  string
	container   string
	source      string
	prefix      string
	account     string
	credential  string
	concurrency int
	provider    string
	region      string
	endpoint    string
	pathStyle   bool
	retries     int
	timeout     time.Duration
	verbose     bool
}

func newUploadCmd(a *app) *cobra.Command {
	f := &uploadFlags{}

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload the files of a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return a.upload(cmd.Context(), cfg, f.verbose)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	flags.StringVarP(&f.container, "container", "c", "", "destination container")
	flags.StringVarP(&f.source, "source", "s", "", "source directory")
	flags.StringVarP(&f.prefix, "prefix", "p", "", "destination prefix")
	flags.StringVar(&f.account, "account", "", "storage account identifier")
	flags.StringVar(&f.credential, "credential", "", "storage account credential")
	flags.IntVarP(&f.concurrency, "concurrency", "j", blobtypes.DefaultConcurrency, "maximum uploads in flight")
	flags.StringVar(&f.provider, "provider", config.ProviderAzure, "storage provider (azure or s3)")
	flags.StringVar(&f.region, "region", "", "S3 region")
	flags.StringVar(&f.endpoint, "endpoint", "", "custom service endpoint")
	flags.BoolVar(&f.pathStyle, "path-style", false, "use path-style S3 addressing")
	flags.IntVar(&f.retries, "retries", config.DefaultRetries, "SDK retries per upload")
	flags.DurationVar(&f.timeout, "timeout", 0, "timeout for each HTTP attempt (0 for none)")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// apply copies explicitly set flags over cfg.
func (f *uploadFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("container") {
		cfg.Container = f.container
	}
	if changed("source") {
		cfg.Source = f.source
	}
	if changed("prefix") {
		cfg.Prefix = f.prefix
	}
	if changed("account") {
		cfg.Account = f.account
	}
	if changed("credential") {
		cfg.Credential = f.credential
	}
	if changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if changed("provider") {
		cfg.Provider = f.provider
	}
	if changed("region") {
		cfg.Region = f.region
	}
	if changed("endpoint") {
		cfg.Endpoint = f.endpoint
	}
	if changed("path-style") {
		cfg.PathStyle = f.pathStyle
	}
	if changed("retries") {
		cfg.Retries = f.retries
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
}

func (a *app) upload(ctx context.Context, cfg *config.Config, verbose bool) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancelCtx := context.WithCancel(ctx)
	defer cancelCtx()

	// Without a credential pair the run is rejected by validation before the
	// store is ever used.
	var store blobtypes.BlobStore
	if cfg.Account != "" && cfg.Credential != "" {
		var err error
		store, err = a.newStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
	}

	token := cancel.New()
	stop := a.watchSignals(token, cancelCtx)
	defer stop()

	queue := notify.NewQueue()
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		render(a.stdout, queue.Events())
	}()

	result, err := blobsync.New(store, blobsync.WithLogger(logger)).
		Run(ctx, cfg.RunConfig(), token, queue)
	queue.Close()
	<-rendered

	if err != nil {
		logger.Debug("run failed", "error_code", blobErrors.CodeOf(err))
	}
	if hint := failureHint(cfg.Container, result, err); hint != "" {
		fmt.Fprintln(a.stderr, "hint:", hint)
	}
	return outcomeError(result.Outcome, err)
}

// failureHint suggests a fix for the most common causes of a failed run.
func failureHint(container string, result *blobtypes.RunResult, err error) string {
	errs := []error{err}
	for _, f := range result.Failed {
		errs = append(errs, f.Err)
	}
	cause := errors.Join(errs...)

	switch {
	case cause == nil:
		return ""
	case blobErrors.IsInvalidInput(cause):
		return "check the upload flags, the config file and the BLOBSYNC_* environment"
	case blobErrors.IsContainerNotFound(cause):
		return fmt.Sprintf("container %q does not exist; create it before uploading", container)
	case blobErrors.IsAccessDenied(cause):
		return fmt.Sprintf("the credential is not allowed to write to container %q", container)
	default:
		return ""
	}
}

// watchSignals cancels the token on the first signal and the context on the second.
func (a *app) watchSignals(token *cancel.Token, cancelCtx context.CancelFunc) func() {
	sigs := make(chan os.Signal, 2)
	a.signals(sigs)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigs:
			token.Cancel()
			fmt.Fprintln(a.stderr, "cancelling: waiting for uploads in progress (press Ctrl+C again to abort)")
		case <-done:
			return
		}
		select {
		case <-sigs:
			cancelCtx()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func outcomeError(outcome blobtypes.Outcome, err error) error {
	switch outcome {
	case blobtypes.OutcomeCompleted, blobtypes.OutcomeNoFiles:
		return nil
	case blobtypes.OutcomeCompletedWithErrors:
		return &exitError{code: exitCompletedWithErr}
	case blobtypes.OutcomeCancelled:
		return &exitError{code: exitCancelled}
	default:
		return &exitError{code: exitFailed, err: err}
	}
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blobtypes.BlobStore, error) {
	switch cfg.Provider {
	case config.ProviderS3:
		opts := []s3store.Option{
			s3store.WithLogger(logger),
			s3store.WithForcePathStyle(cfg.PathStyle),
			s3store.WithMaxRetries(cfg.Retries),
			s3store.WithTimeout(cfg.Timeout),
		}
		if cfg.Region != "" {
			opts = append(opts, s3store.WithRegion(cfg.Region))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(cfg.Endpoint))
		}
		return s3store.New(ctx, cfg.Account, cfg.Credential, opts...)
	default:
		opts := []azurestore.Option{
			azurestore.WithLogger(logger),
			azurestore.WithMaxRetries(cfg.Retries),
			azurestore.WithTimeout(cfg.Timeout),
		}
		if cfg.Endpoint != "" {
			opts = append(opts, azurestore.WithServiceURL(cfg.Endpoint))
		}
		return azurestore.New(cfg.Account, cfg.Credential, opts...)
	}
}
