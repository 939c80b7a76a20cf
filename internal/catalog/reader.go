package catalog

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbforge/kbmcp/internal/blobstore"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

const (
	// fetchParallelism bounds concurrent metadata fetches.
	fetchParallelism = 8

	// maxMetadataSize caps a single catalog entry. Anything larger is
	// not version metadata and is skipped without fetching.
	maxMetadataSize = 1 << 20
)

// Reader lists and parses index version metadata from the artifact bucket.
// Side-effect-free: it never writes to the catalog.
type Reader struct {
	store  blobstore.Store
	prefix string
}

// NewReader creates a catalog reader over the given store and key prefix.
func NewReader(store blobstore.Store, prefix string) *Reader {
	return &Reader{
		store:  store,
		prefix: prefix,
	}
}

// ListVersions returns all parseable versions sorted by created_at
// ascending (ties by version_id ascending), plus the number of entries
// skipped as malformed.
//
// Only a failure of the listing call itself is an error; a single
// unreadable or malformed entry is skipped and counted, and whatever
// parses is still returned. An empty catalog is a nil slice, nil error.
func (r *Reader) ListVersions(ctx context.Context) ([]IndexVersion, int, error) {
	start := time.Now()

	infos, err := r.store.List(ctx, r.prefix)
	if err != nil {
		return nil, 0, kberrors.CatalogUnavailable("failed to list catalog prefix "+r.prefix, err)
	}
	if len(infos) == 0 {
		return nil, 0, nil
	}

	// Fetch and parse entries in parallel, one slot per listed object.
	// A nil slot after the join means the entry was skipped.
	parsed := make([]*IndexVersion, len(infos))
	var skipped int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, fetchParallelism)

	for i, info := range infos {
		i, info := i, info

		markSkipped := func(reason string, err error) {
			attrs := []any{
				slog.String("key", info.Key),
				slog.String("reason", reason),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			slog.Warn("catalog_entry_skipped", attrs...)
			mu.Lock()
			skipped++
			mu.Unlock()
		}

		if !strings.HasSuffix(info.Key, ".json") {
			markSkipped("not a metadata object", nil)
			continue
		}
		if info.Size > maxMetadataSize {
			markSkipped("metadata object too large", nil)
			continue
		}

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			data, err := r.store.Get(gctx, info.Key)
			if err != nil {
				// An entry that vanished or failed to read is a per-entry
				// problem, not a catalog outage.
				markSkipped("fetch failed", err)
				return nil
			}

			v, err := ParseVersion(data)
			if err != nil {
				markSkipped("parse failed", err)
				return nil
			}

			parsed[i] = &v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Only context cancellation reaches here.
		return nil, 0, kberrors.CatalogUnavailable("catalog read interrupted", err)
	}

	var versions []IndexVersion
	for _, v := range parsed {
		if v != nil {
			versions = append(versions, *v)
		}
	}

	sort.Slice(versions, func(i, j int) bool {
		if !versions[i].CreatedAt.Equal(versions[j].CreatedAt) {
			return versions[i].CreatedAt.Before(versions[j].CreatedAt)
		}
		return versions[i].VersionID < versions[j].VersionID
	})

	slog.Debug("catalog_listed",
		slog.Int("versions", len(versions)),
		slog.Int("skipped", skipped),
		slog.Duration("duration", time.Since(start)))

	return versions, skipped, nil
}

// Get returns a single version's metadata by id, or VersionNotFound.
func (r *Reader) Get(ctx context.Context, versionID string) (IndexVersion, error) {
	versions, _, err := r.ListVersions(ctx)
	if err != nil {
		return IndexVersion{}, err
	}
	for _, v := range versions {
		if v.VersionID == versionID {
			return v, nil
		}
	}
	return IndexVersion{}, kberrors.New(kberrors.ErrCodeVersionNotFound,
		"version "+versionID+" not found in catalog", nil)
}
