package search

import (
	"github.com/kbforge/kbmcp/internal/config"
)

// Limit fallbacks used when configuration carries zeros.
const (
	FallbackDefaultTopK = 5
	FallbackMaxTopK     = 50
	FallbackRerankTopK  = 20
)

// Limits are the configured bounds applied to every request before it
// reaches the backend. Out-of-range values are clamped, not rejected;
// only an empty query is a caller error.
type Limits struct {
	// DefaultTopK replaces an unset top_k.
	DefaultTopK int
	// MaxTopK caps both top_k and rerank_top_k.
	MaxTopK int
	// DefaultRerankTopK replaces an unset rerank_top_k.
	DefaultRerankTopK int
}

// LimitsFromConfig builds Limits from the search configuration,
// substituting fallbacks for unset fields.
func LimitsFromConfig(cfg config.SearchConfig) Limits {
	l := Limits{
		DefaultTopK:       cfg.DefaultTopK,
		MaxTopK:           cfg.MaxTopK,
		DefaultRerankTopK: cfg.RerankTopK,
	}
	if l.DefaultTopK <= 0 {
		l.DefaultTopK = FallbackDefaultTopK
	}
	if l.MaxTopK <= 0 {
		l.MaxTopK = FallbackMaxTopK
	}
	if l.DefaultRerankTopK <= 0 {
		l.DefaultRerankTopK = FallbackRerankTopK
	}
	return l
}

// ClampTopK normalizes a requested top_k: unset or non-positive values
// become the default, and anything above MaxTopK is capped.
func (l Limits) ClampTopK(topK int) int {
	if topK <= 0 {
		topK = l.DefaultTopK
	}
	if topK > l.MaxTopK {
		topK = l.MaxTopK
	}
	return topK
}

// ClampRerank normalizes the (top_k, rerank_top_k) pair for two-stage
// search. The candidate window is widened to at least top_k, since
// reranking fewer candidates than the requested result count would
// silently shrink the response.
func (l Limits) ClampRerank(topK, rerankTopK int) (int, int) {
	topK = l.ClampTopK(topK)

	if rerankTopK <= 0 {
		rerankTopK = l.DefaultRerankTopK
	}
	if rerankTopK < topK {
		rerankTopK = topK
	}
	if rerankTopK > l.MaxTopK {
		rerankTopK = l.MaxTopK
	}
	return topK, rerankTopK
}
