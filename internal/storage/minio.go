package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/OkanBey11/ToDoApiWithGemini/config"
)

// MinioClient stores objects in one bucket of an S3-compatible server.
type MinioClient struct {
	client *minio.Client
	bucket string
}

// NewMinioClient creates a client with static credentials.
func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	var missing []string
	for _, field := range [][2]string{
		{"endpoint", cfg.Endpoint},
		{"access key", cfg.AccessKey},
		{"secret key", cfg.SecretKey},
		{"bucket", cfg.Bucket},
	} {
		if strings.TrimSpace(field[1]) == "" {
			missing = append(missing, field[0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("minio %s required", strings.Join(missing, ", "))
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it is missing.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil || exists {
		return err
	}
	err = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" {
		return nil
	}
	return err
}

// Put uploads r to key. A negative size streams with multipart upload.
func (m *MinioClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if size < 0 {
		size = -1
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentTypeOrDefault(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Get opens key for reading. GetObject is lazy, so the object is stat'ed
// first to report a missing key here rather than on first read.
func (m *MinioClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := m.stat(ctx, key); err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(err)
	}
	return obj, nil
}

// Delete removes key. RemoveObject succeeds for missing keys, so the object
// is stat'ed first.
func (m *MinioClient) Delete(ctx context.Context, key string) error {
	if err := m.stat(ctx, key); err != nil {
		return err
	}
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// Bucket returns the configured bucket name.
func (m *MinioClient) Bucket() string {
	return m.bucket
}

// Close is a no-op; the MinIO client holds no resources beyond its HTTP
// transport.
func (m *MinioClient) Close() error {
	return nil
}

func (m *MinioClient) stat(ctx context.Context, key string) error {
	_, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	return mapMinioError(err)
}

func mapMinioError(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return ErrNotFound
	}
	return err
}
