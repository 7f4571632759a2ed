package attachments

import (
	"context"
	"io"
	"io/fs"
)

// ErrNotExist is returned by disks for a missing file or directory.
var ErrNotExist = fs.ErrNotExist

// Disk is the storage driver behind the attachment store. Paths are
// slash-separated and relative to the disk root.
type Disk interface {
	// Put writes r to path, replacing any existing file.
	Put(ctx context.Context, path string, r io.Reader) error

	// Open returns the content of path. Caller must close it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// List returns the files directly inside dir, or ErrNotExist.
	List(ctx context.Context, dir string) ([]FileDescriptor, error)

	// DirExists reports whether dir exists.
	DirExists(ctx context.Context, dir string) (bool, error)

	// MakeDirectory creates dir and any parents.
	MakeDirectory(ctx context.Context, dir string) error
}
