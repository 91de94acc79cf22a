// Package storage keeps uploaded invoice files. Objects are addressed by
// their stored name (a flat namespace, no directories).
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned by Open for unknown names.
var ErrNotFound = errors.New("file not found")

// ErrInvalidName rejects names that could escape the store.
var ErrInvalidName = errors.New("invalid file name")

// Store is implemented by LocalStore and S3Store.
type Store interface {
	// Save writes r under name and returns the number of bytes written.
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	// Open returns the content of name; callers close it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Delete removes name. Missing objects are not an error.
	Delete(ctx context.Context, name string) error
	// Purge removes every object and reports how many were deleted.
	Purge(ctx context.Context) (int, error)
}

// ReadAll opens name and returns its bytes.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	rc, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// DeleteAll removes names and returns how many deletions succeeded along with
// the joined errors of the rest.
func DeleteAll(ctx context.Context, s Store, names []string) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, name := range names {
		if err := s.Delete(ctx, name); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// CheckName accepts a single path element without separators or dot names.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || path.Base(name) != name {
		return ErrInvalidName
	}
	return nil
}

// keepFile survives Purge so the upload directory stays in version control.
const keepFile = ".gitkeep"
