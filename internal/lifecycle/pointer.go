// Package lifecycle manages which index version searches run against:
// the active-version pointer, latest-READY selection, promotion, and
// indexing run submission.
package lifecycle

import (
	"sync/atomic"
)

// ActiveVersion is the process-wide pointer to the index version all
// searches target. It starts unset; queries before the first Set fail
// fast instead of guessing a version. Reads and writes are atomic, so
// concurrent searches always see either the old or the new version,
// never a mix.
type ActiveVersion struct {
	v atomic.Pointer[string]
}

// NewActiveVersion creates an unset pointer.
func NewActiveVersion() *ActiveVersion {
	return &ActiveVersion{}
}

// Get returns the active version id. ok is false while the pointer has
// never been set.
func (a *ActiveVersion) Get() (id string, ok bool) {
	p := a.v.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Set atomically replaces the pointer and reports the previous id and
// whether the value actually changed. Re-applying the current version
// is a no-op with changed == false.
func (a *ActiveVersion) Set(versionID string) (previous string, changed bool) {
	p := a.v.Swap(&versionID)
	if p == nil {
		return "", true
	}
	return *p, *p != versionID
}
