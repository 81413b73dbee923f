package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3RegistryConfig configures an S3-backed registry tier, laid out under
// "<prefix><tool_id>/<file>".
type S3RegistryConfig struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// S3Backend implements RegistryBackend against an S3-compatible bucket.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Backend(ctx context.Context, cfg S3RegistryConfig) (*S3Backend, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("resolver: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Backend{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (b *S3Backend) Fetch(ctx context.Context, toolID string) (map[string][]byte, error) {
	toolPrefix := b.prefix + toolID + "/"

	listed, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(toolPrefix),
	})
	if err != nil {
		var nsb *types.NoSuchBucket
		if errors.As(err, &nsb) {
			return nil, errNotInTier
		}
		return nil, fmt.Errorf("resolver: listing s3://%s/%s: %w", b.bucket, toolPrefix, err)
	}
	if len(listed.Contents) == 0 {
		return nil, errNotInTier
	}

	files := make(map[string][]byte, len(listed.Contents))
	for _, obj := range listed.Contents {
		key := aws.ToString(obj.Key)
		rel := strings.TrimPrefix(key, toolPrefix)
		if rel == "" {
			continue
		}
		out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("resolver: getting s3://%s/%s: %w", b.bucket, key, err)
		}
		content, err := readAllAndClose(out.Body)
		if err != nil {
			return nil, fmt.Errorf("resolver: reading s3://%s/%s: %w", b.bucket, key, err)
		}
		files[rel] = content
	}
	return files, nil
}
