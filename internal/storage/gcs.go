package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/OkanBey11/ToDoApiWithGemini/config"
)

// GCSClient stores objects in one Google Cloud Storage bucket.
type GCSClient struct {
	client    *storage.Client
	bucket    string
	projectID string
}

// NewGCSClient creates a client for cfg.Bucket. Credentials come from
// cfg.CredentialsFile or the ambient application default credentials.
func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*GCSClient, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSClient{client: client, bucket: cfg.Bucket, projectID: cfg.ProjectID}, nil
}

// EnsureBucket creates the bucket when it is missing. Creation needs a
// project id.
func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	bucket := g.client.Bucket(g.bucket)
	_, err := bucket.Attrs(ctx)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, storage.ErrBucketNotExist):
		return err
	case strings.TrimSpace(g.projectID) == "":
		return fmt.Errorf("gcs bucket %s does not exist and no project id is set", g.bucket)
	}
	return bucket.Create(ctx, g.projectID, nil)
}

// Put uploads r to key. A failed copy cancels the upload so no partial object
// is committed.
func (g *GCSClient) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentTypeOrDefault(contentType)
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Get opens key for reading.
func (g *GCSClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, mapGCSError(err)
	}
	return rc, nil
}

// Delete removes key.
func (g *GCSClient) Delete(ctx context.Context, key string) error {
	return mapGCSError(g.client.Bucket(g.bucket).Object(key).Delete(ctx))
}

// Bucket returns the configured bucket name.
func (g *GCSClient) Bucket() string {
	return g.bucket
}

// Close releases the underlying client.
func (g *GCSClient) Close() error {
	return g.client.Close()
}

func mapGCSError(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}
