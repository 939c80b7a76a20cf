// Package search routes queries to the active index version, applies
// request limits, and layers optional result caching on top. It never
// picks a version by itself; the lifecycle package owns that decision.
package search

import (
	"github.com/kbforge/kbmcp/internal/backend"
)

// Response is what a search returns to callers.
type Response struct {
	// Query is the query as dispatched, after trimming.
	Query string `json:"query"`
	// VersionID is the index version the search ran against.
	VersionID string `json:"version_id"`
	// Results are the retrieved chunks, best first.
	Results []backend.Result `json:"results"`
	// Reranked reports whether the reranking stage actually ran. False
	// for plain search, disabled reranking, or a degraded two-stage
	// search that fell back to single-stage results.
	Reranked bool `json:"reranked"`
	// Cached is true when the response was served from the result cache.
	Cached bool `json:"cached,omitempty"`
}
