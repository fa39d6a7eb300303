package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/OkanBey11/ToDoApiWithGemini/config"
)

// ErrNotFound is returned by Get and Delete when the object does not exist.
var ErrNotFound = errors.New("object not found")

const defaultContentType = "application/octet-stream"

func contentTypeOrDefault(contentType string) string {
	if ct := strings.TrimSpace(contentType); ct != "" {
		return ct
	}
	return defaultContentType
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
	Close() error
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend selected by cfg.Backend and ensures its bucket.
// It returns nil, nil when object storage is disabled.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case "", config.BackendNone:
		return nil, nil
	case config.StorageMinio:
		backend, err = NewMinioClient(cfg.Minio)
	case config.StorageGCS:
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", cfg.Backend, err)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend), nil
}

// Put uploads an object to the configured bucket.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens a reader for an object in the configured bucket. Missing objects
// yield ErrNotFound.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes an object from the configured bucket. Missing objects
// yield ErrNotFound.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// Close releases the backend client.
func (s *Storage) Close() error {
	return s.backend.Close()
}
