package testutil

import (
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

// FaultyFS wraps a billy.Filesystem and injects errors for chosen paths.
type FaultyFS struct {
	billy.Filesystem

	// OpenErrors maps a path to the error returned by Open
	OpenErrors map[string]error

	// ReadDirErr, if set, is returned by every ReadDir call
	ReadDirErr error
}

// Open returns the injected error for filename, if any.
//
//nolint:ireturn // billy.File is an interface; signature is dictated by upstream.
func (f *FaultyFS) Open(filename string) (billy.File, error) {
	if err, ok := f.OpenErrors[filename]; ok {
		return nil, err
	}
	return f.Filesystem.Open(filename)
}

// ReadDir returns ReadDirErr when set.
func (f *FaultyFS) ReadDir(path string) ([]os.FileInfo, error) {
	if f.ReadDirErr != nil {
		return nil, f.ReadDirErr
	}
	return f.Filesystem.ReadDir(path)
}

// NewMemFS returns an in-memory filesystem holding files under dir.
// files maps base names to contents.
//
//nolint:ireturn // billy.Filesystem is an interface.
func NewMemFS(dir string, files map[string]string) (billy.Filesystem, error) {
	fs := memfs.New()
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	for name, content := range files {
		if err := util.WriteFile(fs, fs.Join(dir, name), []byte(content), 0o644); err != nil {
			return nil, err
		}
	}
	return fs, nil
}
