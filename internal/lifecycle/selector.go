package lifecycle

import (
	"github.com/kbforge/kbmcp/internal/catalog"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

// SelectLatestReady picks the READY version with the newest created_at,
// breaking timestamp ties by the lexicographically greatest version id
// so the choice is deterministic for any input order.
//
// A catalog with versions but none READY, or an empty catalog, is a
// normal outcome reported as a no-ready-version error, not a failure.
func SelectLatestReady(versions []catalog.IndexVersion) (catalog.IndexVersion, error) {
	var best *catalog.IndexVersion
	for i := range versions {
		v := &versions[i]
		if v.Status != catalog.StatusReady {
			continue
		}
		switch {
		case best == nil:
			best = v
		case v.CreatedAt.After(best.CreatedAt):
			best = v
		case v.CreatedAt.Equal(best.CreatedAt) && v.VersionID > best.VersionID:
			best = v
		}
	}
	if best == nil {
		return catalog.IndexVersion{}, kberrors.NoReadyVersion()
	}
	return *best, nil
}
