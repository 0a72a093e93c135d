// Package s3 stores document bytes in an S3-compatible bucket.
package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"deptdocs/internal/config"
	"deptdocs/internal/domain"
)

// Storage implements storage.PhysicalStorage on top of minio-go
type Storage struct {
	cl     *minio.Client
	bucket string
	logger *slog.Logger
}

// New creates a client for cfg.Endpoint. It does not contact the server.
func New(cfg config.S3Config, logger *slog.Logger) (*Storage, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &Storage{cl: cl, bucket: cfg.Bucket, logger: logger}, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (s *Storage) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return &domain.StorageError{Op: "bucket", Path: s.bucket, Err: err}
	}
	if exists {
		return nil
	}
	if err := s.cl.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return &domain.StorageError{Op: "bucket", Path: s.bucket, Err: err}
	}
	s.logger.Info("bucket created", "bucket", s.bucket)
	return nil
}

func (s *Storage) Write(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, err := s.cl.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (s *Storage) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := s.cl.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.readError(path, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller streams
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, s.readError(path, err)
	}
	return obj, nil
}

func (s *Storage) Delete(ctx context.Context, path string) error {
	// RemoveObject succeeds for missing keys, so a stat distinguishes them
	if _, err := s.cl.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{}); err != nil {
		return s.readError(path, err)
	}
	if err := s.cl.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return &domain.StorageError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

func (s *Storage) readError(path string, err error) error {
	if isNotFound(err) {
		return domain.NotFound("file", path)
	}
	return &domain.StorageError{Op: "read", Path: path, Err: err}
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
