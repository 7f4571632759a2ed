// Package attachments keeps the files uploaded alongside a product.
//
// Files live in a directory named after the owning product's id on a Disk
// (local filesystem or S3). The directory name is the only link between a
// product row and its files; nothing is removed when a product is deleted.
// This package is the only place that builds attachment paths.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidName is returned for an upload whose filename has no usable base name.
var ErrInvalidName = errors.New("attachments: invalid file name")

// FileDescriptor describes one stored attachment.
type FileDescriptor struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Upload is one file to store, keyed by its original filename.
type Upload struct {
	Filename string
	Body     io.Reader
}

type Store struct {
	disk Disk
}

func New(disk Disk) *Store {
	return &Store{disk: disk}
}

func dirFor(productID uint) string {
	return strconv.FormatUint(uint64(productID), 10)
}

func pathFor(productID uint, name string) string {
	return path.Join(dirFor(productID), name)
}

// BaseName reduces a client-supplied filename to its last element. Browsers
// on Windows may send a full path with backslashes.
func BaseName(filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	switch name {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return name, nil
}

// List returns the product's attachments sorted by name. A missing
// directory yields an empty list.
func (s *Store) List(ctx context.Context, productID uint) ([]FileDescriptor, error) {
	files, err := s.disk.List(ctx, dirFor(productID))
	if errors.Is(err, ErrNotExist) {
		return []FileDescriptor{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Save writes files under the product's directory, creating it first.
// A file with the same name is overwritten.
func (s *Store) Save(ctx context.Context, productID uint, files []Upload) error {
	if len(files) == 0 {
		return nil
	}
	if err := s.disk.MakeDirectory(ctx, dirFor(productID)); err != nil {
		return err
	}
	for _, f := range files {
		name, err := BaseName(f.Filename)
		if err != nil {
			return err
		}
		if err := s.disk.Put(ctx, pathFor(productID, name), f.Body); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether the product's directory exists.
func (s *Store) Exists(ctx context.Context, productID uint) (bool, error) {
	return s.disk.DirExists(ctx, dirFor(productID))
}

// HasAnyFile reports whether the product's directory holds at least one file.
func (s *Store) HasAnyFile(ctx context.Context, productID uint) (bool, error) {
	files, err := s.disk.List(ctx, dirFor(productID))
	if errors.Is(err, ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// Open streams one attachment. The name is reduced to its base name, so it
// cannot escape the product's directory.
func (s *Store) Open(ctx context.Context, productID uint, name string) (io.ReadCloser, error) {
	base, err := BaseName(name)
	if err != nil {
		return nil, ErrNotExist
	}
	return s.disk.Open(ctx, pathFor(productID, base))
}
