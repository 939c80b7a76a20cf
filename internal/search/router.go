package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kbforge/kbmcp/internal/backend"
	"github.com/kbforge/kbmcp/internal/config"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
	"github.com/kbforge/kbmcp/internal/lifecycle"
)

// Retriever is the slice of the backend client the router needs.
type Retriever interface {
	Retrieve(ctx context.Context, versionID, query string, topK int) ([]backend.Result, error)
	RetrieveReranked(ctx context.Context, versionID, query string, topK, rerankTopK int) ([]backend.Result, error)
}

// Searcher is implemented by Router and by the caching wrapper around
// it, so callers do not care whether a cache sits in between.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) (*Response, error)
	SearchAdvanced(ctx context.Context, query string, topK, rerankTopK int) (*Response, error)
}

// Router dispatches searches to whatever index version is active at
// the instant the call starts. A promotion happening mid-flight does
// not affect a search already dispatched.
type Router struct {
	retriever     Retriever
	active        *lifecycle.ActiveVersion
	limits        Limits
	rerankEnabled bool
}

// NewRouter builds a router over the given retriever and pointer.
func NewRouter(retriever Retriever, active *lifecycle.ActiveVersion, cfg config.SearchConfig) *Router {
	return &Router{
		retriever:     retriever,
		active:        active,
		limits:        LimitsFromConfig(cfg),
		rerankEnabled: cfg.RerankEnabled,
	}
}

// Limits exposes the request bounds, for surfaces that describe them.
func (r *Router) Limits() Limits {
	return r.limits
}

// resolve validates the query and pins the version for one search.
func (r *Router) resolve(query string) (versionID, trimmed string, err error) {
	trimmed = strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", kberrors.InvalidQuery("query must not be empty")
	}
	versionID, ok := r.active.Get()
	if !ok {
		return "", "", kberrors.NoActiveVersion()
	}
	return versionID, trimmed, nil
}

// Search runs a single-stage search against the active version and
// returns up to topK results. An upstream failure is always an error,
// never an empty result set.
func (r *Router) Search(ctx context.Context, query string, topK int) (*Response, error) {
	versionID, trimmed, err := r.resolve(query)
	if err != nil {
		return nil, err
	}
	topK = r.limits.ClampTopK(topK)

	start := time.Now()
	results, err := r.retriever.Retrieve(ctx, versionID, trimmed, topK)
	if err != nil {
		return nil, err
	}

	slog.Debug("search_completed",
		slog.String("version_id", versionID),
		slog.Int("top_k", topK),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return &Response{
		Query:     trimmed,
		VersionID: versionID,
		Results:   results,
		Reranked:  false,
	}, nil
}

// SearchAdvanced runs the two-stage search: retrieve a rerankTopK
// candidate window, rerank, keep topK. When the reranking stage fails
// the router degrades to a single-stage search over the same version
// and marks the response unreranked; only a failure of both stages
// surfaces as an error.
func (r *Router) SearchAdvanced(ctx context.Context, query string, topK, rerankTopK int) (*Response, error) {
	versionID, trimmed, err := r.resolve(query)
	if err != nil {
		return nil, err
	}
	topK, rerankTopK = r.limits.ClampRerank(topK, rerankTopK)

	if !r.rerankEnabled {
		slog.Debug("rerank_disabled_by_config")
		return r.searchAs(ctx, versionID, trimmed, topK)
	}

	start := time.Now()
	results, err := r.retriever.RetrieveReranked(ctx, versionID, trimmed, topK, rerankTopK)
	if err != nil {
		degraded := kberrors.New(kberrors.ErrCodeRerankFailed,
			"reranking stage failed, serving single-stage results", err)
		slog.Warn("rerank_degraded",
			slog.String("version_id", versionID),
			slog.String("error", degraded.Error()),
			slog.String("cause", err.Error()))
		return r.searchAs(ctx, versionID, trimmed, topK)
	}

	slog.Debug("search_advanced_completed",
		slog.String("version_id", versionID),
		slog.Int("top_k", topK),
		slog.Int("rerank_top_k", rerankTopK),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return &Response{
		Query:     trimmed,
		VersionID: versionID,
		Results:   results,
		Reranked:  true,
	}, nil
}

// searchAs is the shared single-stage tail for the degraded and
// rerank-disabled paths. The version stays pinned to what the original
// call resolved, even if a promotion happened in between.
func (r *Router) searchAs(ctx context.Context, versionID, query string, topK int) (*Response, error) {
	results, err := r.retriever.Retrieve(ctx, versionID, query, topK)
	if err != nil {
		return nil, err
	}
	return &Response{
		Query:     query,
		VersionID: versionID,
		Results:   results,
		Reranked:  false,
	}, nil
}

// Verify interface implementation at compile time
var _ Searcher = (*Router)(nil)
