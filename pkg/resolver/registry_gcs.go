package resolver

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSRegistryConfig configures a GCS-backed registry tier.
type GCSRegistryConfig struct {
	Bucket string
	Prefix string
}

// GCSBackend implements RegistryBackend against a Google Cloud Storage
// bucket, laid out the same way as S3Backend: "<prefix><tool_id>/<file>".
type GCSBackend struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSBackend(ctx context.Context, cfg GCSRegistryConfig) (*GCSBackend, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolver: creating GCS client: %w", err)
	}
	return &GCSBackend{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (b *GCSBackend) Fetch(ctx context.Context, toolID string) (map[string][]byte, error) {
	toolPrefix := b.prefix + toolID + "/"
	bucket := b.client.Bucket(b.bucket)

	it := bucket.Objects(ctx, &storage.Query{Prefix: toolPrefix})
	files := make(map[string][]byte)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("resolver: listing gs://%s/%s: %w", b.bucket, toolPrefix, err)
		}
		rel := strings.TrimPrefix(attrs.Name, toolPrefix)
		if rel == "" {
			continue
		}

		rc, err := bucket.Object(attrs.Name).NewReader(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolver: reading gs://%s/%s: %w", b.bucket, attrs.Name, err)
		}
		content, err := readAllAndClose(rc)
		if err != nil {
			return nil, fmt.Errorf("resolver: draining gs://%s/%s: %w", b.bucket, attrs.Name, err)
		}
		files[rel] = content
	}
	if len(files) == 0 {
		return nil, errNotInTier
	}
	return files, nil
}

func readAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
