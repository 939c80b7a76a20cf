// Package catalog reads index version metadata from the artifact bucket.
//
// Each catalog entry is a small JSON object under the catalog prefix
// describing one build of the managed index. The indexing backend writes
// entries; this package only reads them.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of an index version.
type Status string

const (
	// StatusPending means the indexing job is accepted but not started.
	StatusPending Status = "PENDING"
	// StatusRunning means the build is in progress.
	StatusRunning Status = "RUNNING"
	// StatusReady means the version is complete and queryable.
	StatusReady Status = "READY"
	// StatusFailed means the build failed. Terminal, like READY.
	StatusFailed Status = "FAILED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// IndexVersion is one build of the managed index.
//
// Only the backend mutates status; this process never writes catalog
// entries. created_at is the ordering key for "latest".
type IndexVersion struct {
	VersionID    string    `json:"version_id"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	SourcePrefix string    `json:"source_prefix,omitempty"`
	FileCount    int       `json:"file_count,omitempty"`
}

// ParseVersion decodes and validates one catalog entry.
func ParseVersion(data []byte) (IndexVersion, error) {
	var v IndexVersion
	if err := json.Unmarshal(data, &v); err != nil {
		return IndexVersion{}, fmt.Errorf("invalid version metadata: %w", err)
	}
	if v.VersionID == "" {
		return IndexVersion{}, fmt.Errorf("version metadata missing version_id")
	}
	if !v.Status.Valid() {
		return IndexVersion{}, fmt.Errorf("version %s has unknown status %q", v.VersionID, v.Status)
	}
	if v.CreatedAt.IsZero() {
		return IndexVersion{}, fmt.Errorf("version %s missing created_at", v.VersionID)
	}
	return v, nil
}
