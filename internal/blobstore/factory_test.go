package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbmcp/internal/config"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

func TestNew_MemoryProvider(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{Provider: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestNew_UnknownProvider_ReturnsConfigError(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Provider: "tape"})
	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeConfigInvalid, kberrors.GetCode(err))
}

func TestNew_MinioMissingEndpoint_ReturnsConfigError(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{
		Provider: "minio",
		Bucket:   "kb",
	})
	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeConfigInvalid, kberrors.GetCode(err))
	assert.Contains(t, err.Error(), "endpoint")
}

func TestNew_MinioMissingBucket_ReturnsConfigError(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{
		Provider: "minio",
		Endpoint: "localhost:9000",
	})
	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeConfigInvalid, kberrors.GetCode(err))
	assert.Contains(t, err.Error(), "bucket")
}

func TestNew_MinioWithEndpoint_BuildsStore(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{
		Provider:        "minio",
		Endpoint:        "localhost:9000",
		Bucket:          "kb",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		PathStyle:       true,
	})
	require.NoError(t, err)
	assert.IsType(t, &MinioStore{}, store)
}

func TestNew_MinioStripsScheme(t *testing.T) {
	// URL-style endpoints are tolerated; the scheme is carried by use_ssl
	store, err := New(context.Background(), config.StorageConfig{
		Provider:        "minio",
		Endpoint:        "https://minio.example.com:9000",
		Bucket:          "kb",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UseSSL:          true,
	})
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestNew_S3MissingBucket_ReturnsConfigError(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Provider: "s3"})
	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeConfigInvalid, kberrors.GetCode(err))
}
