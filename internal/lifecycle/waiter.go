package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kbforge/kbmcp/internal/catalog"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

// StatusSnapshot records the catalog state before a submission so a
// later poll can tell new or changed versions apart from old ones.
type StatusSnapshot map[string]catalog.Status

// Snapshot builds a StatusSnapshot from a version listing.
func Snapshot(versions []catalog.IndexVersion) StatusSnapshot {
	snap := make(StatusSnapshot, len(versions))
	for _, v := range versions {
		snap[v.VersionID] = v.Status
	}
	return snap
}

// WaitProgress is one catalog observation reported to optional
// observers while AwaitNewVersion polls.
type WaitProgress struct {
	// Versions is the number of entries currently in the catalog.
	Versions int
	// Building counts entries that have not reached a terminal status.
	Building int
	// Message is set when a poll failed and will be retried.
	Message string
}

// AwaitNewVersion polls the catalog every interval until a version
// that was absent from known, or known but not yet terminal, reaches a
// terminal status. It returns that version whether it ended READY or
// FAILED; the caller decides what failure means. Transient catalog
// outages during the poll are logged, reported to observers, and
// retried on the next tick. Observers are called once per poll from
// the polling goroutine.
//
// This is the only place in the module that waits on indexing. The
// submission path never blocks; interactive commands opt into this.
func (m *Manager) AwaitNewVersion(ctx context.Context, known StatusSnapshot, interval, timeout time.Duration, observers ...func(WaitProgress)) (catalog.IndexVersion, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	notify := func(p WaitProgress) {
		for _, observe := range observers {
			observe(p)
		}
	}

	for {
		versions, _, err := m.catalog.ListVersions(ctx)
		switch {
		case err == nil:
			building := 0
			for _, v := range versions {
				if !v.Status.Terminal() {
					building++
				}
			}
			notify(WaitProgress{Versions: len(versions), Building: building})

			for _, v := range versions {
				if !v.Status.Terminal() {
					continue
				}
				prev, seen := known[v.VersionID]
				if !seen || !prev.Terminal() {
					return v, nil
				}
			}
		case kberrors.IsCatalogUnavailable(err) && ctx.Err() == nil:
			slog.Warn("catalog_poll_failed", slog.String("error", err.Error()))
			notify(WaitProgress{Message: "catalog poll failed; retrying"})
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return catalog.IndexVersion{}, awaitTimeout(timeout, ctx.Err())
		default:
			return catalog.IndexVersion{}, err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return catalog.IndexVersion{}, awaitTimeout(timeout, ctx.Err())
			}
			return catalog.IndexVersion{}, kberrors.Wrap(kberrors.ErrCodeInternal, ctx.Err())
		case <-ticker.C:
		}
	}
}

func awaitTimeout(timeout time.Duration, cause error) *kberrors.KBError {
	return kberrors.New(kberrors.ErrCodeVersionNotReady,
		"no indexing run reached a terminal status within "+timeout.String(), cause).
		WithSuggestion("The build may still be running; check `kbmcp versions` later")
}
