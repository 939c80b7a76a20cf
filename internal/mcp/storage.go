package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kbforge/kbmcp/internal/blobstore"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

// MaxDownloadSize is the largest object storage_download will return.
const MaxDownloadSize = 1024 * 1024

const (
	defaultListKeys = 100
	maxListKeys     = 1000
)

// validateKey rejects keys that are empty or try to escape the bucket
// namespace.
func validateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return NewInvalidParamsError("key is required")
	}
	if strings.HasPrefix(key, "/") {
		return NewInvalidParamsError("key must not start with '/'")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return NewInvalidParamsError("key must not contain '..' segments")
		}
	}
	return nil
}

// handleStorageUpload is the SDK handler for the storage_upload tool.
func (s *Server) handleStorageUpload(ctx context.Context, _ *mcp.CallToolRequest, input StorageUploadInput) (
	*mcp.CallToolResult,
	StorageUploadOutput,
	error,
) {
	if err := validateKey(input.Key); err != nil {
		return nil, StorageUploadOutput{}, err
	}
	key := strings.TrimSpace(input.Key)

	contentType := input.ContentType
	if contentType == "" {
		contentType = MimeTypeForPath(key)
	}

	data := []byte(input.Content)
	if err := s.store.Put(ctx, key, data, contentType); err != nil {
		s.logger.Error("storage_upload failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return nil, StorageUploadOutput{}, MapError(err)
	}

	s.logger.Info("storage_upload completed",
		slog.String("key", key),
		slog.Int("size", len(data)))

	return nil, StorageUploadOutput{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// handleStorageDownload is the SDK handler for the storage_download tool.
func (s *Server) handleStorageDownload(ctx context.Context, _ *mcp.CallToolRequest, input StorageDownloadInput) (
	*mcp.CallToolResult,
	StorageDownloadOutput,
	error,
) {
	if err := validateKey(input.Key); err != nil {
		return nil, StorageDownloadOutput{}, err
	}
	key := strings.TrimSpace(input.Key)

	info, err := s.store.Stat(ctx, key)
	if err != nil {
		return nil, StorageDownloadOutput{}, MapError(storageReadError(key, err))
	}
	if info.Size > MaxDownloadSize {
		err := kberrors.New(kberrors.ErrCodeObjectTooLarge,
			fmt.Sprintf("object %q is %d bytes, limit is %d", key, info.Size, MaxDownloadSize), nil)
		return nil, StorageDownloadOutput{}, MapError(err)
	}

	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, StorageDownloadOutput{}, MapError(storageReadError(key, err))
	}

	output := StorageDownloadOutput{
		Key:         key,
		ContentType: MimeTypeForPath(key),
		Size:        int64(len(data)),
	}
	if utf8.Valid(data) {
		output.Content = string(data)
	} else {
		output.Content = base64.StdEncoding.EncodeToString(data)
		output.Encoding = "base64"
	}

	return nil, output, nil
}

// handleStorageList is the SDK handler for the storage_list tool.
func (s *Server) handleStorageList(ctx context.Context, _ *mcp.CallToolRequest, input StorageListInput) (
	*mcp.CallToolResult,
	StorageListOutput,
	error,
) {
	maxKeys := input.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultListKeys
	}
	if maxKeys > maxListKeys {
		maxKeys = maxListKeys
	}

	objects, err := s.store.List(ctx, input.Prefix)
	if err != nil {
		s.logger.Error("storage_list failed",
			slog.String("prefix", input.Prefix),
			slog.String("error", err.Error()))
		return nil, StorageListOutput{}, MapError(err)
	}

	output := StorageListOutput{
		Prefix:  input.Prefix,
		Objects: make([]StorageObjectOutput, 0, len(objects)),
	}
	if len(objects) > maxKeys {
		objects = objects[:maxKeys]
		output.Truncated = true
	}
	for _, o := range objects {
		output.Objects = append(output.Objects, StorageObjectOutput{
			Key:          o.Key,
			Size:         o.Size,
			LastModified: o.LastModified.UTC().Format(time.RFC3339),
		})
	}
	output.Count = len(output.Objects)

	return nil, output, nil
}

// handleStorageDelete is the SDK handler for the storage_delete tool.
func (s *Server) handleStorageDelete(ctx context.Context, _ *mcp.CallToolRequest, input StorageDeleteInput) (
	*mcp.CallToolResult,
	StorageDeleteOutput,
	error,
) {
	if err := validateKey(input.Key); err != nil {
		return nil, StorageDeleteOutput{}, err
	}
	key := strings.TrimSpace(input.Key)

	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Error("storage_delete failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return nil, StorageDeleteOutput{}, MapError(err)
	}

	s.logger.Info("storage_delete completed", slog.String("key", key))

	return nil, StorageDeleteOutput{Key: key, Deleted: true}, nil
}

// storageReadError maps a store read failure to a domain error,
// distinguishing missing objects from transport failures.
func storageReadError(key string, err error) error {
	if errors.Is(err, blobstore.ErrNotFound) {
		return kberrors.New(kberrors.ErrCodeObjectNotFound,
			fmt.Sprintf("object %q not found", key), err)
	}
	return kberrors.StorageError(fmt.Sprintf("failed to read object %q", key), err)
}
