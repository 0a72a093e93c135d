// Package local stores document bytes on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"deptdocs/internal/domain"
)

// Storage implements storage.PhysicalStorage under a root directory
type Storage struct {
	root string
}

// New creates the root directory if needed
func New(root string) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{root: root}, nil
}

// resolve maps a storage path onto the root, rejecting escapes
func (s *Storage) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", domain.Invalid("invalid storage path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}

// Write streams r into a temp file and renames it into place
func (s *Storage) Write(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, readerWithContext(ctx, r))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("short write: wrote %d of %d bytes", n, size)
	}
	if err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (s *Storage) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NotFound("file", path)
		}
		return nil, &domain.StorageError{Op: "read", Path: path, Err: err}
	}
	return f, nil
}

func (s *Storage) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NotFound("file", path)
		}
		return &domain.StorageError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
