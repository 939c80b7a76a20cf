package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kbforge/kbmcp/internal/lifecycle"
)

// DefaultCacheSize is used when the configured size is not positive.
const DefaultCacheSize = 256

// CachedSearcher wraps a Searcher with LRU result caching. Keys are
// scoped to the active version at lookup time, so a promotion naturally
// stops hitting stale entries without explicit invalidation.
type CachedSearcher struct {
	inner  Searcher
	active *lifecycle.ActiveVersion
	limits Limits
	cache  *lru.Cache[string, Response]
}

// NewCachedSearcher creates a caching wrapper. limits must match the
// inner searcher's so equivalent requests normalize to the same key.
// cacheSize is the number of responses kept in memory.
func NewCachedSearcher(inner Searcher, active *lifecycle.ActiveVersion, limits Limits, cacheSize int) *CachedSearcher {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, Response](cacheSize)
	return &CachedSearcher{
		inner:  inner,
		active: active,
		limits: limits,
		cache:  cache,
	}
}

// cacheKey builds a stable key over everything that shapes a response.
func cacheKey(versionID, mode, query string, topK, rerankTopK int) string {
	combined := fmt.Sprintf("%s\x00%s\x00%s\x00%d\x00%d", versionID, mode, query, topK, rerankTopK)
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// Search serves an identical earlier query from cache when one ran
// against the same version with the same effective top_k.
func (c *CachedSearcher) Search(ctx context.Context, query string, topK int) (*Response, error) {
	key, ok := c.key("search", query, c.limits.ClampTopK(topK), 0)
	if !ok {
		// Unset pointer or blank query; the inner searcher owns the
		// error shape for both.
		return c.inner.Search(ctx, query, topK)
	}

	if cached, hit := c.cache.Get(key); hit {
		out := cached
		out.Cached = true
		return &out, nil
	}

	resp, err := c.inner.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, *resp)
	return resp, nil
}

// SearchAdvanced caches reranked responses. Degraded responses are not
// cached, so reranking recovery is picked up on the next identical query.
func (c *CachedSearcher) SearchAdvanced(ctx context.Context, query string, topK, rerankTopK int) (*Response, error) {
	clampedTopK, clampedRerank := c.limits.ClampRerank(topK, rerankTopK)
	key, ok := c.key("advanced", query, clampedTopK, clampedRerank)
	if !ok {
		return c.inner.SearchAdvanced(ctx, query, topK, rerankTopK)
	}

	if cached, hit := c.cache.Get(key); hit {
		out := cached
		out.Cached = true
		return &out, nil
	}

	resp, err := c.inner.SearchAdvanced(ctx, query, topK, rerankTopK)
	if err != nil {
		return nil, err
	}
	if resp.Reranked {
		c.cache.Add(key, *resp)
	}
	return resp, nil
}

// key normalizes the request the same way the router does and scopes it
// to the active version. ok is false when no key can be formed; the
// caller then delegates so the inner searcher produces the right error.
func (c *CachedSearcher) key(mode, query string, topK, rerankTopK int) (string, bool) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", false
	}
	versionID, set := c.active.Get()
	if !set {
		return "", false
	}
	return cacheKey(versionID, mode, trimmed, topK, rerankTopK), true
}

// Verify interface implementation at compile time
var _ Searcher = (*CachedSearcher)(nil)
