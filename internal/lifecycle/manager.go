package lifecycle

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kbforge/kbmcp/internal/backend"
	"github.com/kbforge/kbmcp/internal/catalog"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

// CatalogReader is the slice of the catalog package the manager needs.
type CatalogReader interface {
	ListVersions(ctx context.Context) ([]catalog.IndexVersion, int, error)
	Get(ctx context.Context, versionID string) (catalog.IndexVersion, error)
}

// JobSubmitter submits indexing runs.
type JobSubmitter interface {
	StartIndexing(ctx context.Context, job backend.JobRequest) (string, error)
}

// Manager ties the catalog, the indexing backend and the active-version
// pointer together. It is the single place pointer changes happen.
type Manager struct {
	catalog   CatalogReader
	submitter JobSubmitter
	active    *ActiveVersion
}

// NewManager creates a lifecycle manager around an unset pointer.
func NewManager(cat CatalogReader, submitter JobSubmitter, active *ActiveVersion) *Manager {
	if active == nil {
		active = NewActiveVersion()
	}
	return &Manager{catalog: cat, submitter: submitter, active: active}
}

// Active returns the pointer itself for read-side consumers.
func (m *Manager) Active() *ActiveVersion {
	return m.active
}

// VersionList is the catalog view returned by Versions.
type VersionList struct {
	// Versions is every parseable catalog entry, oldest first.
	Versions []catalog.IndexVersion
	// Skipped counts malformed entries the listing ignored.
	Skipped int
	// ActiveID is the currently active version id, empty while unset.
	ActiveID string
}

// Versions lists the catalog together with the active pointer so
// callers can render "which one is live" in one call.
func (m *Manager) Versions(ctx context.Context) (VersionList, error) {
	versions, skipped, err := m.catalog.ListVersions(ctx)
	if err != nil {
		return VersionList{}, err
	}
	activeID, _ := m.active.Get()
	return VersionList{Versions: versions, Skipped: skipped, ActiveID: activeID}, nil
}

// Promotion is the outcome of a pointer update.
type Promotion struct {
	// Applied is the version id now active.
	Applied string
	// Previous is the version id that was active before, empty if none.
	Previous string
	// Changed is false when Applied was already active.
	Changed bool
}

// Promote activates a version. An empty versionID selects the latest
// READY version from the catalog; an explicit id is verified to exist
// and be READY before the pointer moves. Searches already in flight
// finish against the version they started with.
func (m *Manager) Promote(ctx context.Context, versionID string) (Promotion, error) {
	versionID = strings.TrimSpace(versionID)

	var target catalog.IndexVersion
	if versionID == "" {
		versions, _, err := m.catalog.ListVersions(ctx)
		if err != nil {
			return Promotion{}, err
		}
		target, err = SelectLatestReady(versions)
		if err != nil {
			return Promotion{}, err
		}
	} else {
		v, err := m.catalog.Get(ctx, versionID)
		if err != nil {
			return Promotion{}, err
		}
		if v.Status != catalog.StatusReady {
			return Promotion{}, kberrors.New(kberrors.ErrCodeVersionNotReady,
				"version "+v.VersionID+" is "+string(v.Status)+", not READY", nil).
				WithDetail("status", string(v.Status))
		}
		target = v
	}

	previous, changed := m.active.Set(target.VersionID)
	if changed {
		slog.Info("active_version_changed",
			slog.String("previous", previous),
			slog.String("applied", target.VersionID))
	} else {
		slog.Debug("active_version_unchanged",
			slog.String("applied", target.VersionID))
	}

	return Promotion{Applied: target.VersionID, Previous: previous, Changed: changed}, nil
}

// Bootstrap sets the initial pointer at startup. An explicit pin must
// resolve or startup fails; without a pin the latest READY version is
// applied best-effort, and a fresh or unreachable catalog just leaves
// the pointer unset so queries fail fast until a promotion happens.
func (m *Manager) Bootstrap(ctx context.Context, pinnedVersionID string) error {
	if pinnedVersionID != "" {
		_, err := m.Promote(ctx, pinnedVersionID)
		return err
	}

	_, err := m.Promote(ctx, "")
	if err != nil {
		if kberrors.IsNoReadyVersion(err) || kberrors.IsCatalogUnavailable(err) {
			slog.Warn("startup_without_active_version",
				slog.String("reason", err.Error()))
			return nil
		}
		return err
	}
	return nil
}

// StartIndexing submits one indexing run and returns as soon as the
// backend accepts it. Progress shows up in the catalog, not here.
func (m *Manager) StartIndexing(ctx context.Context, job backend.JobRequest) (string, error) {
	return m.submitter.StartIndexing(ctx, job)
}
