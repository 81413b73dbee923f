package resolver

import (
	"context"
	"fmt"
	"os"
)

// BackendType selects which RegistryBackend NewRegistryBackendFromEnv
// constructs, mirroring the teacher's ARTIFACT_STORAGE_TYPE switch.
type BackendType string

const (
	BackendNone BackendType = "none"
	BackendS3   BackendType = "s3"
	BackendGCS  BackendType = "gcs"
)

// NewRegistryBackendFromEnv builds the remote registry tier's backend from
// environment variables:
//
//   - TOOL_REGISTRY_TYPE: "none" (default), "s3", or "gcs"
//   - TOOL_REGISTRY_S3_BUCKET / _REGION / _ENDPOINT / _PREFIX
//   - TOOL_REGISTRY_GCS_BUCKET / _PREFIX
//
// "none" returns a nil backend; callers should skip the registry tier
// entirely rather than constructing a RegistryTier around it.
func NewRegistryBackendFromEnv(ctx context.Context) (RegistryBackend, error) {
	backendType := BackendType(os.Getenv("TOOL_REGISTRY_TYPE"))
	if backendType == "" {
		backendType = BackendNone
	}

	switch backendType {
	case BackendNone:
		return nil, nil
	case BackendS3:
		bucket := os.Getenv("TOOL_REGISTRY_S3_BUCKET")
		if bucket == "" {
			return nil, fmt.Errorf("resolver: TOOL_REGISTRY_S3_BUCKET is required for s3 registry backend")
		}
		region := os.Getenv("TOOL_REGISTRY_S3_REGION")
		if region == "" {
			region = os.Getenv("AWS_REGION")
		}
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Backend(ctx, S3RegistryConfig{
			Bucket:   bucket,
			Region:   region,
			Endpoint: os.Getenv("TOOL_REGISTRY_S3_ENDPOINT"),
			Prefix:   os.Getenv("TOOL_REGISTRY_S3_PREFIX"),
		})
	case BackendGCS:
		bucket := os.Getenv("TOOL_REGISTRY_GCS_BUCKET")
		if bucket == "" {
			return nil, fmt.Errorf("resolver: TOOL_REGISTRY_GCS_BUCKET is required for gcs registry backend")
		}
		return NewGCSBackend(ctx, GCSRegistryConfig{
			Bucket: bucket,
			Prefix: os.Getenv("TOOL_REGISTRY_GCS_PREFIX"),
		})
	default:
		return nil, fmt.Errorf("resolver: unsupported TOOL_REGISTRY_TYPE %q", backendType)
	}
}
