package docsync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbmcp/internal/blobstore"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestSyncer(t *testing.T, root string, del bool) (*Syncer, *blobstore.MemoryStore) {
	t.Helper()
	store := blobstore.NewMemoryStore()
	syncer := NewSyncer(store, Options{
		Root:       root,
		Prefix:     "documents/",
		Extensions: []string{".txt", ".md", ".pdf"},
		Delete:     del,
	})
	return syncer, store
}

func TestSync_UploadsMatchingFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "guide.md", "# Guide")
	writeFile(t, root, "notes.txt", "notes")
	writeFile(t, root, "nested/deep/faq.md", "# FAQ")
	writeFile(t, root, "main.go", "package main") // not a mirrored extension
	writeFile(t, root, ".hidden.md", "secret")
	writeFile(t, root, ".cache/temp.md", "cached")

	syncer, store := newTestSyncer(t, root, false)

	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Uploaded)
	assert.Equal(t, 0, result.Unchanged)
	assert.Equal(t, 0, result.Deleted)
	assert.Positive(t, result.Bytes)

	objects, err := store.List(context.Background(), "documents/")
	require.NoError(t, err)
	keys := make([]string, len(objects))
	for i, o := range objects {
		keys[i] = o.Key
	}
	assert.Equal(t, []string{
		"documents/guide.md",
		"documents/nested/deep/faq.md",
		"documents/notes.txt",
	}, keys)

	data, err := store.Get(context.Background(), "documents/guide.md")
	require.NoError(t, err)
	assert.Equal(t, "# Guide", string(data))
}

func TestSync_SecondPassIsUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "aaa")
	writeFile(t, root, "b.txt", "bbb")

	syncer, _ := newTestSyncer(t, root, false)

	_, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Uploaded)
	assert.Equal(t, 2, result.Unchanged)
}

func TestSync_ChangedFileReuploaded(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.md", "version one")

	syncer, store := newTestSyncer(t, root, false)
	_, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("version two, longer"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Uploaded)

	data, err := store.Get(context.Background(), "documents/a.md")
	require.NoError(t, err)
	assert.Equal(t, "version two, longer", string(data))
}

func TestSync_DeletePrunesOrphans(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.md", "keep")

	syncer, store := newTestSyncer(t, root, true)
	require.NoError(t, store.Put(context.Background(), "documents/orphan.md", []byte("old"), "text/markdown"))
	require.NoError(t, store.Put(context.Background(), "other/unrelated.md", []byte("x"), "text/markdown"))

	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	_, err = store.Get(context.Background(), "documents/orphan.md")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	// Objects outside the prefix are never touched.
	_, err = store.Get(context.Background(), "other/unrelated.md")
	assert.NoError(t, err)
}

func TestSync_WithoutDeleteKeepsOrphans(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.md", "keep")

	syncer, store := newTestSyncer(t, root, false)
	require.NoError(t, store.Put(context.Background(), "documents/orphan.md", []byte("old"), "text/markdown"))

	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Deleted)

	_, err = store.Get(context.Background(), "documents/orphan.md")
	assert.NoError(t, err)
}

func TestSync_MissingRoot(t *testing.T) {
	syncer, _ := newTestSyncer(t, filepath.Join(t.TempDir(), "does-not-exist"), false)

	_, err := syncer.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeConfigInvalid, kberrors.GetCode(err))
}

func TestSync_ConcurrentSyncRejected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "a")

	held := flock.New(filepath.Join(root, lockFileName))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = held.Unlock() }()

	syncer, _ := newTestSyncer(t, root, false)
	_, err = syncer.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another sync")
}

func TestSync_ExtensionsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.MD", "caps")
	writeFile(t, root, "Notes.Txt", "mixed")

	syncer, _ := newTestSyncer(t, root, false)
	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Uploaded)
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.txt", "text/plain"},
		{"b.md", "text/markdown"},
		{"c.pdf", "application/pdf"},
		{"d.json", "application/json"},
		{"e.html", "text/html"},
		{"f.bin", "application/octet-stream"},
		{"G.MD", "text/markdown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContentTypeFor(tt.path), tt.path)
	}
}
