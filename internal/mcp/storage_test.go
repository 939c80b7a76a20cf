package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbmcp/internal/blobstore"
	"github.com/kbforge/kbmcp/internal/config"
	"github.com/kbforge/kbmcp/internal/lifecycle"
	"github.com/kbforge/kbmcp/internal/search"
)

func newStorageTestServer(t *testing.T) (*Server, *blobstore.MemoryStore) {
	t.Helper()

	store := blobstore.NewMemoryStore()
	s, err := NewServer(
		&fakeSearcher{resp: &search.Response{}},
		lifecycle.NewManager(&fakeCatalog{}, &fakeSubmitter{}, nil),
		store,
		config.NewConfig(),
	)
	require.NoError(t, err)
	return s, store
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr string
	}{
		{"simple key", "guide.md", ""},
		{"nested key", "documents/team/guide.md", ""},
		{"dots inside segment", "documents/..weird.md", ""},
		{"empty", "", "key is required"},
		{"whitespace only", "   ", "key is required"},
		{"absolute path", "/etc/passwd", "must not start with '/'"},
		{"parent traversal", "documents/../secrets.md", "'..' segments"},
		{"leading traversal", "../outside.md", "'..' segments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateKey(tt.key)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
			assert.Contains(t, mcpErr.Message, tt.wantErr)
		})
	}
}

func TestHandleStorageUpload(t *testing.T) {
	// Given an empty store
	s, store := newStorageTestServer(t)

	// When a markdown document is uploaded without a content type
	_, out, err := s.handleStorageUpload(context.Background(), nil, StorageUploadInput{
		Key:     "documents/onboarding.md",
		Content: "# Onboarding\n\nStart here.",
	})

	// Then the type is inferred from the extension and the object persisted
	require.NoError(t, err)
	assert.Equal(t, "documents/onboarding.md", out.Key)
	assert.Equal(t, int64(25), out.Size)
	assert.Equal(t, "text/markdown", out.ContentType)

	data, err := store.Get(context.Background(), "documents/onboarding.md")
	require.NoError(t, err)
	assert.Equal(t, "# Onboarding\n\nStart here.", string(data))
}

func TestHandleStorageUpload_ExplicitContentType(t *testing.T) {
	s, _ := newStorageTestServer(t)

	_, out, err := s.handleStorageUpload(context.Background(), nil, StorageUploadInput{
		Key:         "documents/data.bin",
		Content:     "raw",
		ContentType: "application/x-custom",
	})

	require.NoError(t, err)
	assert.Equal(t, "application/x-custom", out.ContentType)
}

func TestHandleStorageUpload_TrimsKey(t *testing.T) {
	s, store := newStorageTestServer(t)

	_, out, err := s.handleStorageUpload(context.Background(), nil, StorageUploadInput{
		Key:     "  documents/padded.txt  ",
		Content: "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "documents/padded.txt", out.Key)
	_, err = store.Stat(context.Background(), "documents/padded.txt")
	require.NoError(t, err)
}

func TestHandleStorageUpload_InvalidKey(t *testing.T) {
	s, store := newStorageTestServer(t)

	_, _, err := s.handleStorageUpload(context.Background(), nil, StorageUploadInput{
		Key:     "../escape.txt",
		Content: "nope",
	})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)

	objects, listErr := store.List(context.Background(), "")
	require.NoError(t, listErr)
	assert.Empty(t, objects)
}

func TestHandleStorageDownload_Text(t *testing.T) {
	s, store := newStorageTestServer(t)
	require.NoError(t, store.Put(context.Background(), "documents/faq.txt", []byte("Q: how?\nA: like this."), "text/plain"))

	_, out, err := s.handleStorageDownload(context.Background(), nil, StorageDownloadInput{Key: "documents/faq.txt"})

	require.NoError(t, err)
	assert.Equal(t, "Q: how?\nA: like this.", out.Content)
	assert.Empty(t, out.Encoding)
	assert.Equal(t, "text/plain", out.ContentType)
	assert.Equal(t, int64(21), out.Size)
}

func TestHandleStorageDownload_BinaryIsBase64(t *testing.T) {
	// Given an object whose bytes are not valid UTF-8
	s, store := newStorageTestServer(t)
	raw := []byte{0x25, 0x50, 0x44, 0x46, 0xff, 0xfe, 0x00, 0x01}
	require.NoError(t, store.Put(context.Background(), "documents/scan.pdf", raw, "application/pdf"))

	// When it is downloaded
	_, out, err := s.handleStorageDownload(context.Background(), nil, StorageDownloadInput{Key: "documents/scan.pdf"})

	// Then the content is transported as base64
	require.NoError(t, err)
	assert.Equal(t, "base64", out.Encoding)
	decoded, decErr := base64.StdEncoding.DecodeString(out.Content)
	require.NoError(t, decErr)
	assert.Equal(t, raw, decoded)
	assert.Equal(t, "application/pdf", out.ContentType)
}

func TestHandleStorageDownload_NotFound(t *testing.T) {
	s, _ := newStorageTestServer(t)

	_, _, err := s.handleStorageDownload(context.Background(), nil, StorageDownloadInput{Key: "documents/missing.md"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeObjectNotFound, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "documents/missing.md")
}

func TestHandleStorageDownload_TooLarge(t *testing.T) {
	s, store := newStorageTestServer(t)
	big := make([]byte, MaxDownloadSize+1)
	require.NoError(t, store.Put(context.Background(), "documents/huge.txt", big, "text/plain"))

	_, _, err := s.handleStorageDownload(context.Background(), nil, StorageDownloadInput{Key: "documents/huge.txt"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeObjectTooLarge, mcpErr.Code)
}

func TestHandleStorageList(t *testing.T) {
	// Given objects under two prefixes
	s, store := newStorageTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "documents/a.md", []byte("a"), "text/markdown"))
	require.NoError(t, store.Put(ctx, "documents/b.md", []byte("bb"), "text/markdown"))
	require.NoError(t, store.Put(ctx, "versions/v-001.json", []byte("{}"), "application/json"))

	// When only the documents prefix is listed
	_, out, err := s.handleStorageList(ctx, nil, StorageListInput{Prefix: "documents/"})

	// Then keys outside the prefix stay hidden
	require.NoError(t, err)
	assert.Equal(t, "documents/", out.Prefix)
	assert.Equal(t, 2, out.Count)
	assert.False(t, out.Truncated)
	require.Len(t, out.Objects, 2)
	assert.Equal(t, "documents/a.md", out.Objects[0].Key)
	assert.Equal(t, int64(1), out.Objects[0].Size)
	assert.Equal(t, "documents/b.md", out.Objects[1].Key)

	_, parseErr := time.Parse(time.RFC3339, out.Objects[0].LastModified)
	require.NoError(t, parseErr)
}

func TestHandleStorageList_Truncation(t *testing.T) {
	s, store := newStorageTestServer(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put(ctx, fmt.Sprintf("documents/doc-%d.md", i), []byte("x"), "text/markdown"))
	}

	_, out, err := s.handleStorageList(ctx, nil, StorageListInput{Prefix: "documents/", MaxKeys: 3})

	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)
	assert.True(t, out.Truncated)
}

func TestHandleStorageList_Empty(t *testing.T) {
	s, _ := newStorageTestServer(t)

	_, out, err := s.handleStorageList(context.Background(), nil, StorageListInput{})

	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
	assert.Empty(t, out.Objects)
	assert.False(t, out.Truncated)
}

func TestHandleStorageDelete(t *testing.T) {
	s, store := newStorageTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "documents/stale.md", []byte("old"), "text/markdown"))

	_, out, err := s.handleStorageDelete(ctx, nil, StorageDeleteInput{Key: "documents/stale.md"})

	require.NoError(t, err)
	assert.True(t, out.Deleted)
	_, err = store.Get(ctx, "documents/stale.md")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	// Deleting an already-missing key is not an error.
	_, out, err = s.handleStorageDelete(ctx, nil, StorageDeleteInput{Key: "documents/stale.md"})
	require.NoError(t, err)
	assert.True(t, out.Deleted)
}
