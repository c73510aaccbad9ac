// Package localfs exposes the host filesystem as a billy.Filesystem without
// re-rooting paths, so relative source directories resolve against the
// working directory exactly as the os package would.
package localfs

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// FS is a billy.Filesystem that acts like the native filesystem.
type FS struct {
	osfs.ChrootOS
}

// New returns the native filesystem.
func New() *FS {
	return &FS{}
}

// Chroot returns a new filesystem rooted at the provided path.
//
//nolint:ireturn // billy.Filesystem is an interface; signature is dictated by upstream.
func (f *FS) Chroot(path string) (billy.Filesystem, error) {
	return osfs.New(path), nil
}

// Root returns the root path for this filesystem.
func (f *FS) Root() string {
	return "/"
}

var _ billy.Filesystem = (*FS)(nil)
