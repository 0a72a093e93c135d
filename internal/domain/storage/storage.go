package storage

import (
	"context"
	"io"
)

// PhysicalStorage stores document bytes under opaque paths.
// Read of a missing path returns a *domain.NotFoundError; every other
// failure is a *domain.StorageError.
type PhysicalStorage interface {
	Write(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Read(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}
