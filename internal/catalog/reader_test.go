package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbmcp/internal/blobstore"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

// failingStore simulates an unreachable bucket.
type failingStore struct {
	blobstore.Store
	listErr error
	getErr  error
}

func (f *failingStore) List(ctx context.Context, prefix string) ([]blobstore.ObjectInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.List(ctx, prefix)
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func putVersion(t *testing.T, store blobstore.Store, id string, status Status, createdAt time.Time) {
	t.Helper()
	entry := fmt.Sprintf(`{"version_id":%q,"status":%q,"created_at":%q}`,
		id, status, createdAt.Format(time.RFC3339))
	err := store.Put(context.Background(), "versions/"+id+".json", []byte(entry), "application/json")
	require.NoError(t, err)
}

func TestListVersions_EmptyCatalog_ReturnsEmpty(t *testing.T) {
	// Given: nothing under the catalog prefix
	store := blobstore.NewMemoryStore()
	reader := NewReader(store, "versions/")

	// When: listing
	versions, skipped, err := reader.ListVersions(context.Background())

	// Then: empty result, no error
	require.NoError(t, err)
	assert.Empty(t, versions)
	assert.Zero(t, skipped)
}

func TestListVersions_SortedByCreatedAtAscending(t *testing.T) {
	// Given: entries written out of order
	store := blobstore.NewMemoryStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	putVersion(t, store, "v2", StatusReady, base.Add(2*time.Hour))
	putVersion(t, store, "v1", StatusReady, base.Add(1*time.Hour))
	putVersion(t, store, "v3", StatusRunning, base.Add(3*time.Hour))

	reader := NewReader(store, "versions/")

	// When: listing
	versions, skipped, err := reader.ListVersions(context.Background())

	// Then: ordered oldest first
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, versions, 3)
	assert.Equal(t, "v1", versions[0].VersionID)
	assert.Equal(t, "v2", versions[1].VersionID)
	assert.Equal(t, "v3", versions[2].VersionID)
}

func TestListVersions_CreatedAtTies_OrderedByVersionID(t *testing.T) {
	// Given: two entries with identical timestamps
	store := blobstore.NewMemoryStore()
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	putVersion(t, store, "vb", StatusReady, at)
	putVersion(t, store, "va", StatusReady, at)

	reader := NewReader(store, "versions/")

	versions, _, err := reader.ListVersions(context.Background())
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "va", versions[0].VersionID)
	assert.Equal(t, "vb", versions[1].VersionID)
}

func TestListVersions_MalformedEntriesSkippedAndCounted(t *testing.T) {
	// Given: a mixed catalog
	store := blobstore.NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	putVersion(t, store, "good", StatusReady, at)

	require.NoError(t, store.Put(ctx, "versions/broken.json", []byte("{not json"), ""))
	require.NoError(t, store.Put(ctx, "versions/no-id.json",
		[]byte(`{"status":"READY","created_at":"2026-08-01T12:00:00Z"}`), ""))
	require.NoError(t, store.Put(ctx, "versions/bad-status.json",
		[]byte(`{"version_id":"x","status":"EXPLODED","created_at":"2026-08-01T12:00:00Z"}`), ""))
	require.NoError(t, store.Put(ctx, "versions/no-time.json",
		[]byte(`{"version_id":"y","status":"READY"}`), ""))

	reader := NewReader(store, "versions/")

	// When: listing
	versions, skipped, err := reader.ListVersions(ctx)

	// Then: the good entry survives, the rest are counted
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "good", versions[0].VersionID)
	assert.Equal(t, 4, skipped)
}

func TestListVersions_NonJSONObjectsSkipped(t *testing.T) {
	// Given: a stray artifact next to the metadata
	store := blobstore.NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	putVersion(t, store, "v1", StatusReady, at)
	require.NoError(t, store.Put(ctx, "versions/v1.segments.bin", []byte{0x00, 0x01}, ""))

	reader := NewReader(store, "versions/")

	versions, skipped, err := reader.ListVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, skipped)
}

func TestListVersions_OversizedEntrySkipped(t *testing.T) {
	// Given: a metadata-named object far too large to be metadata
	store := blobstore.NewMemoryStore()
	ctx := context.Background()
	big := make([]byte, maxMetadataSize+1)
	require.NoError(t, store.Put(ctx, "versions/huge.json", big, ""))

	reader := NewReader(store, "versions/")

	versions, skipped, err := reader.ListVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)
	assert.Equal(t, 1, skipped)
}

func TestListVersions_ListingFailure_ReturnsCatalogUnavailable(t *testing.T) {
	// Given: a bucket that cannot be listed
	store := &failingStore{
		Store:   blobstore.NewMemoryStore(),
		listErr: errors.New("connection refused"),
	}
	reader := NewReader(store, "versions/")

	// When: listing
	versions, skipped, err := reader.ListVersions(context.Background())

	// Then: the catalog is reported unavailable
	require.Error(t, err)
	assert.Nil(t, versions)
	assert.Zero(t, skipped)
	assert.True(t, kberrors.IsCatalogUnavailable(err))
	assert.True(t, kberrors.IsRetryable(err))
}

func TestListVersions_EntryFetchFailure_SkippedNotFatal(t *testing.T) {
	// Given: listing works but reads fail
	mem := blobstore.NewMemoryStore()
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	putVersion(t, mem, "v1", StatusReady, at)
	store := &failingStore{
		Store:  mem,
		getErr: errors.New("read timeout"),
	}
	reader := NewReader(store, "versions/")

	// When: listing
	versions, skipped, err := reader.ListVersions(context.Background())

	// Then: no hard failure, the unreadable entry is skipped
	require.NoError(t, err)
	assert.Empty(t, versions)
	assert.Equal(t, 1, skipped)
}

func TestListVersions_ManyEntries_AllParsed(t *testing.T) {
	// Given: enough entries to exercise the bounded parallel fetch
	store := blobstore.NewMemoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		putVersion(t, store, fmt.Sprintf("v%03d", i), StatusReady, base.Add(time.Duration(i)*time.Minute))
	}

	reader := NewReader(store, "versions/")

	versions, skipped, err := reader.ListVersions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, versions, 50)
	for i := 1; i < len(versions); i++ {
		assert.True(t, !versions[i].CreatedAt.Before(versions[i-1].CreatedAt))
	}
}

func TestGet_FindsVersionByID(t *testing.T) {
	store := blobstore.NewMemoryStore()
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	putVersion(t, store, "v1", StatusReady, at)
	putVersion(t, store, "v2", StatusFailed, at.Add(time.Hour))

	reader := NewReader(store, "versions/")

	v, err := reader.Get(context.Background(), "v2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, v.Status)
}

func TestGet_UnknownVersion_ReturnsVersionNotFound(t *testing.T) {
	store := blobstore.NewMemoryStore()
	reader := NewReader(store, "versions/")

	_, err := reader.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeVersionNotFound, kberrors.GetCode(err))
}

func TestParseVersion_RoundTrip(t *testing.T) {
	data := []byte(`{
		"version_id": "v20260801-120000",
		"status": "READY",
		"created_at": "2026-08-01T12:00:00Z",
		"source_prefix": "documents/",
		"file_count": 12
	}`)

	v, err := ParseVersion(data)
	require.NoError(t, err)
	assert.Equal(t, "v20260801-120000", v.VersionID)
	assert.Equal(t, StatusReady, v.Status)
	assert.Equal(t, "documents/", v.SourcePrefix)
	assert.Equal(t, 12, v.FileCount)
	assert.True(t, v.Status.Terminal())
}

func TestStatus_TerminalStates(t *testing.T) {
	assert.True(t, StatusReady.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
}

func BenchmarkListVersions_50(b *testing.B) {
	store := blobstore.NewMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		entry := fmt.Sprintf(`{"version_id":"v-%04d","status":"READY","created_at":%q}`,
			i, base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339))
		if err := store.Put(context.Background(), fmt.Sprintf("versions/v-%04d.json", i),
			[]byte(entry), "application/json"); err != nil {
			b.Fatal(err)
		}
	}
	reader := NewReader(store, "versions/")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := reader.ListVersions(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkListVersions_500(b *testing.B) {
	store := blobstore.NewMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 500; i++ {
		entry := fmt.Sprintf(`{"version_id":"v-%04d","status":"READY","created_at":%q}`,
			i, base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339))
		if err := store.Put(context.Background(), fmt.Sprintf("versions/v-%04d.json", i),
			[]byte(entry), "application/json"); err != nil {
			b.Fatal(err)
		}
	}
	reader := NewReader(store, "versions/")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := reader.ListVersions(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
