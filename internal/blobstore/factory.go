package blobstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kbforge/kbmcp/internal/config"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

// New builds a Store from the storage section of the configuration.
//
// Completeness is checked here rather than in config validation so that
// commands which never touch storage can run without a configured bucket.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Provider) {
	case "memory":
		return NewMemoryStore(), nil
	case "minio":
		return newMinioFromConfig(cfg)
	case "s3":
		return newS3FromConfig(ctx, cfg)
	default:
		return nil, kberrors.ConfigError(
			fmt.Sprintf("unknown storage provider %q (want minio, s3 or memory)", cfg.Provider), nil)
	}
}

func newMinioFromConfig(cfg config.StorageConfig) (Store, error) {
	if cfg.Endpoint == "" {
		return nil, kberrors.ConfigError("storage.endpoint is required for the minio provider", nil).
			WithSuggestion("Set storage.endpoint (host:port) or KBMCP_S3_ENDPOINT")
	}
	if cfg.Bucket == "" {
		return nil, kberrors.ConfigError("storage.bucket is required for the minio provider", nil).
			WithSuggestion("Set storage.bucket or KBMCP_S3_BUCKET")
	}

	opts := &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}

	// The minio client wants a bare host:port endpoint
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, kberrors.ConfigError(fmt.Sprintf("invalid minio endpoint %q", cfg.Endpoint), err)
	}
	return NewMinioStore(client, cfg.Bucket), nil
}

func newS3FromConfig(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	if cfg.Bucket == "" {
		return nil, kberrors.ConfigError("storage.bucket is required for the s3 provider", nil).
			WithSuggestion("Set storage.bucket or KBMCP_S3_BUCKET")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, kberrors.ConfigError("failed to load AWS configuration", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.Contains(endpoint, "://") {
				if cfg.UseSSL {
					endpoint = "https://" + endpoint
				} else {
					endpoint = "http://" + endpoint
				}
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return NewS3Store(client, cfg.Bucket), nil
}
