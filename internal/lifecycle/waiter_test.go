package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbmcp/internal/catalog"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

func TestSnapshot(t *testing.T) {
	ts := time.Now()
	snap := Snapshot([]catalog.IndexVersion{
		version("v1", catalog.StatusReady, ts),
		version("v2", catalog.StatusRunning, ts),
	})

	assert.Equal(t, catalog.StatusReady, snap["v1"])
	assert.Equal(t, catalog.StatusRunning, snap["v2"])
	_, seen := snap["v3"]
	assert.False(t, seen)
}

func TestAwaitNewVersion_ReturnsNewReadyVersion(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cat := &fakeCatalog{}
	cat.set(version("v1", catalog.StatusReady, ts))
	mgr := NewManager(cat, &fakeSubmitter{}, nil)

	known := Snapshot([]catalog.IndexVersion{version("v1", catalog.StatusReady, ts)})

	// The new version appears mid-poll.
	go func() {
		time.Sleep(20 * time.Millisecond)
		cat.set(
			version("v1", catalog.StatusReady, ts),
			version("v2", catalog.StatusReady, ts.Add(time.Hour)),
		)
	}()

	got, err := mgr.AwaitNewVersion(context.Background(), known, 5*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.VersionID)
}

func TestAwaitNewVersion_ReturnsFailedVersion(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cat := &fakeCatalog{}
	mgr := NewManager(cat, &fakeSubmitter{}, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cat.set(version("v-broken", catalog.StatusFailed, ts))
	}()

	got, err := mgr.AwaitNewVersion(context.Background(), StatusSnapshot{}, 5*time.Millisecond, time.Second)
	require.NoError(t, err, "a FAILED build is an answer, not a polling error")
	assert.Equal(t, "v-broken", got.VersionID)
	assert.Equal(t, catalog.StatusFailed, got.Status)
}

func TestAwaitNewVersion_WatchesKnownNonTerminalVersion(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cat := &fakeCatalog{}
	cat.set(version("v2", catalog.StatusRunning, ts))
	mgr := NewManager(cat, &fakeSubmitter{}, nil)

	// v2 was already visible as RUNNING when polling started.
	known := Snapshot([]catalog.IndexVersion{version("v2", catalog.StatusRunning, ts)})

	go func() {
		time.Sleep(20 * time.Millisecond)
		cat.set(version("v2", catalog.StatusReady, ts))
	}()

	got, err := mgr.AwaitNewVersion(context.Background(), known, 5*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.VersionID)
	assert.Equal(t, catalog.StatusReady, got.Status)
}

func TestAwaitNewVersion_IgnoresOldTerminalVersions(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cat := &fakeCatalog{}
	cat.set(
		version("v1", catalog.StatusReady, ts),
		version("v0", catalog.StatusFailed, ts.Add(-time.Hour)),
	)
	mgr := NewManager(cat, &fakeSubmitter{}, nil)

	known := Snapshot([]catalog.IndexVersion{
		version("v1", catalog.StatusReady, ts),
		version("v0", catalog.StatusFailed, ts.Add(-time.Hour)),
	})

	_, err := mgr.AwaitNewVersion(context.Background(), known, 5*time.Millisecond, 40*time.Millisecond)
	require.Error(t, err, "versions that were already terminal must not satisfy the wait")
	assert.Equal(t, kberrors.ErrCodeVersionNotReady, kberrors.GetCode(err))
}

func TestAwaitNewVersion_TimesOut(t *testing.T) {
	cat := &fakeCatalog{}
	cat.set(version("v-building", catalog.StatusRunning, time.Now()))
	mgr := NewManager(cat, &fakeSubmitter{}, nil)

	start := time.Now()
	_, err := mgr.AwaitNewVersion(context.Background(), StatusSnapshot{}, 5*time.Millisecond, 50*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, kberrors.ErrCodeVersionNotReady, kberrors.GetCode(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAwaitNewVersion_ToleratesTransientCatalogOutage(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cat := &fakeCatalog{listErr: kberrors.CatalogUnavailable("blip", nil)}
	mgr := NewManager(cat, &fakeSubmitter{}, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cat.mu.Lock()
		cat.listErr = nil
		cat.versions = []catalog.IndexVersion{version("v-new", catalog.StatusReady, ts)}
		cat.mu.Unlock()
	}()

	got, err := mgr.AwaitNewVersion(context.Background(), StatusSnapshot{}, 5*time.Millisecond, time.Second)
	require.NoError(t, err, "a catalog blip during polling must not abort the wait")
	assert.Equal(t, "v-new", got.VersionID)
}

func TestAwaitNewVersion_ReportsProgressToObserver(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cat := &fakeCatalog{}
	cat.set(version("v1", catalog.StatusRunning, ts))
	mgr := NewManager(cat, &fakeSubmitter{}, nil)

	known := Snapshot([]catalog.IndexVersion{version("v1", catalog.StatusRunning, ts)})

	go func() {
		time.Sleep(20 * time.Millisecond)
		cat.set(version("v1", catalog.StatusReady, ts))
	}()

	var observed []WaitProgress
	_, err := mgr.AwaitNewVersion(context.Background(), known, 5*time.Millisecond, time.Second,
		func(p WaitProgress) { observed = append(observed, p) })
	require.NoError(t, err)

	require.NotEmpty(t, observed)
	assert.Equal(t, 1, observed[0].Versions)
	assert.Equal(t, 1, observed[0].Building)
	assert.Empty(t, observed[0].Message)

	last := observed[len(observed)-1]
	assert.Equal(t, 0, last.Building, "the final poll sees the build finished")
}

func TestAwaitNewVersion_ObserverSeesOutage(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cat := &fakeCatalog{listErr: kberrors.CatalogUnavailable("blip", nil)}
	mgr := NewManager(cat, &fakeSubmitter{}, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cat.mu.Lock()
		cat.listErr = nil
		cat.versions = []catalog.IndexVersion{version("v-new", catalog.StatusReady, ts)}
		cat.mu.Unlock()
	}()

	var messages []string
	_, err := mgr.AwaitNewVersion(context.Background(), StatusSnapshot{}, 5*time.Millisecond, time.Second,
		func(p WaitProgress) {
			if p.Message != "" {
				messages = append(messages, p.Message)
			}
		})
	require.NoError(t, err)
	assert.NotEmpty(t, messages, "failed polls are reported, not hidden")
	assert.Contains(t, messages[0], "retrying")
}

func TestAwaitNewVersion_CancelStopsPolling(t *testing.T) {
	cat := &fakeCatalog{}
	mgr := NewManager(cat, &fakeSubmitter{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := mgr.AwaitNewVersion(ctx, StatusSnapshot{}, 5*time.Millisecond, time.Minute)
	require.Error(t, err)
	assert.NotEqual(t, kberrors.ErrCodeVersionNotReady, kberrors.GetCode(err),
		"cancellation is not a timeout")
}
