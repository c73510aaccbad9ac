package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/notify"
)

// Scanner reads the regular files of a directory into UploadJobs.
type Scanner struct {
	fs          billy.Filesystem
	sink        notify.Sink
	logger      *slog.Logger
	parallelism int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithParallelism sets the number of concurrent file reads.
// Values below one fall back to the number of CPUs.
func WithParallelism(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a Scanner over fs that reports per-file problems to sink.
func New(fs billy.Filesystem, sink notify.Sink, opts ...Option) *Scanner {
	s := &Scanner{
		fs:          fs,
		sink:        sink,
		parallelism: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// entry is the per-listing-slot outcome of a read.
type entry struct {
	name     string
	blobName string
	payload  []byte
	staged   bool
}

// Scan stages every regular file directly inside dir.
//
// Sub-directories and special files are skipped silently. A file that cannot be
// read or named is reported to the sink and left out; the remaining files are
// still staged. A failure to list dir is returned as an ErrListFailed error and
// nothing is staged.
func (s *Scanner) Scan(ctx context.Context, dir, prefix string) ([]*blobtypes.UploadJob, error) {
	infos, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, errors.NewError("scan", fmt.Errorf("%w: %w", errors.ErrListFailed, err)).
			WithMessage(fmt.Sprintf("directory read error: %s", dir))
	}
	slices.SortFunc(infos, func(a, b os.FileInfo) int {
		return strings.Compare(a.Name(), b.Name())
	})

	entries := make([]entry, len(infos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, info := range infos {
		if info.IsDir() {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i] = s.stage(dir, prefix, info)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.NewError("scan", err)
	}

	jobs := make([]*blobtypes.UploadJob, 0, len(entries))
	for _, e := range entries {
		if !e.staged {
			continue
		}
		jobs = append(jobs, &blobtypes.UploadJob{
			Index:    len(jobs),
			FileName: e.name,
			BlobName: e.blobName,
			Payload:  e.payload,
			Size:     int64(len(e.payload)),
		})
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "scan complete",
			"dir", dir,
			"entries", len(infos),
			"staged", len(jobs),
		)
	}

	return jobs, nil
}

// stage reads one listing entry. The returned entry is staged only when the
// entry is a readable regular file with a usable name.
func (s *Scanner) stage(dir, prefix string, info os.FileInfo) entry {
	name := info.Name()
	path := s.fs.Join(dir, name)

	if !s.isRegular(path, info) {
		return entry{}
	}

	if !utf8.ValidString(name) {
		s.sink.Error(fmt.Sprintf("failed to convert file name to string: %q", name))
		return entry{}
	}

	blobName := BlobName(prefix, name)
	if err := validation.ValidateBlobName(blobName); err != nil {
		s.sink.Error(fmt.Sprintf("failed to stage file %s: %v", name, err))
		return entry{}
	}

	payload, err := s.read(path, name)
	if err != nil {
		s.sink.Error(err.Error())
		if s.logger != nil {
			s.logger.Warn("skipping unreadable file", "file", name, "error", err)
		}
		return entry{}
	}

	s.sink.Info(name)
	s.sink.Info(blobName)

	return entry{name: name, blobName: blobName, payload: payload, staged: true}
}

// isRegular reports whether path is a regular file, following a symlink once.
func (s *Scanner) isRegular(path string, info os.FileInfo) bool {
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := s.fs.Stat(path)
		if err != nil {
			return false
		}
		info = target
	}
	return info.Mode().IsRegular()
}

func (s *Scanner) read(path, name string) ([]byte, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}
	return payload, nil
}

// BlobName returns the destination blob name of a file.
func BlobName(prefix, fileName string) string {
	return prefix + "/" + fileName
}
