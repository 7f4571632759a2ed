package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalDisk stores attachments on the local filesystem under root.
type LocalDisk struct {
	root string
}

// NewLocalDisk returns a disk rooted at root. A relative root is resolved
// against the working directory.
func NewLocalDisk(root string) (*LocalDisk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("attachments/local: resolve root %s: %w", root, err)
	}
	return &LocalDisk{root: abs}, nil
}

func (d *LocalDisk) abs(path string) string {
	return filepath.Join(d.root, filepath.FromSlash(path))
}

func (d *LocalDisk) Put(_ context.Context, path string, r io.Reader) error {
	full := d.abs(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("attachments/local: mkdir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("attachments/local: create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("attachments/local: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("attachments/local: close %s: %w", path, err)
	}
	return nil
}

func (d *LocalDisk) Open(_ context.Context, path string) (io.ReadCloser, error) {
	full := d.abs(path)
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("attachments/local: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, ErrNotExist
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("attachments/local: open %s: %w", path, err)
	}
	return f, nil
}

func (d *LocalDisk) List(_ context.Context, dir string) ([]FileDescriptor, error) {
	entries, err := os.ReadDir(d.abs(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("attachments/local: list %s: %w", dir, err)
	}
	out := make([]FileDescriptor, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("attachments/local: stat %s/%s: %w", dir, e.Name(), err)
		}
		out = append(out, FileDescriptor{Name: e.Name(), Size: info.Size()})
	}
	return out, nil
}

func (d *LocalDisk) DirExists(_ context.Context, dir string) (bool, error) {
	info, err := os.Stat(d.abs(dir))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("attachments/local: stat %s: %w", dir, err)
	}
	return info.IsDir(), nil
}

func (d *LocalDisk) MakeDirectory(_ context.Context, dir string) error {
	if err := os.MkdirAll(d.abs(dir), 0o755); err != nil {
		return fmt.Errorf("attachments/local: mkdir %s: %w", dir, err)
	}
	return nil
}
