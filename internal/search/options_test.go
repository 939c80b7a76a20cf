package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kbforge/kbmcp/internal/config"
)

func testLimits() Limits {
	return Limits{DefaultTopK: 5, MaxTopK: 50, DefaultRerankTopK: 20}
}

func TestLimitsFromConfig(t *testing.T) {
	l := LimitsFromConfig(config.SearchConfig{DefaultTopK: 7, MaxTopK: 30, RerankTopK: 15})
	assert.Equal(t, Limits{DefaultTopK: 7, MaxTopK: 30, DefaultRerankTopK: 15}, l)
}

func TestLimitsFromConfig_Fallbacks(t *testing.T) {
	l := LimitsFromConfig(config.SearchConfig{})
	assert.Equal(t, FallbackDefaultTopK, l.DefaultTopK)
	assert.Equal(t, FallbackMaxTopK, l.MaxTopK)
	assert.Equal(t, FallbackRerankTopK, l.DefaultRerankTopK)
}

func TestClampTopK(t *testing.T) {
	l := testLimits()

	tests := []struct {
		name string
		in   int
		want int
	}{
		{"unset uses default", 0, 5},
		{"negative uses default", -3, 5},
		{"lower bound", 1, 1},
		{"in range passes through", 10, 10},
		{"upper bound", 50, 50},
		{"above max capped", 200, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.ClampTopK(tt.in))
		})
	}
}

func TestClampRerank(t *testing.T) {
	l := testLimits()

	tests := []struct {
		name       string
		topK       int
		rerankTopK int
		wantTopK   int
		wantRerank int
	}{
		{"both unset use defaults", 0, 0, 5, 20},
		{"window widened to top_k", 30, 10, 30, 30},
		{"window kept when larger", 5, 25, 5, 25},
		{"window capped at max", 10, 500, 10, 50},
		{"top_k capped then window follows", 200, 0, 50, 50},
		{"equal values stay", 15, 15, 15, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotTopK, gotRerank := l.ClampRerank(tt.topK, tt.rerankTopK)
			assert.Equal(t, tt.wantTopK, gotTopK)
			assert.Equal(t, tt.wantRerank, gotRerank)
		})
	}
}

func TestClampRerank_WindowNeverBelowTopK(t *testing.T) {
	l := testLimits()
	for topK := 0; topK <= 60; topK += 7 {
		for rerank := 0; rerank <= 60; rerank += 9 {
			gotTopK, gotRerank := l.ClampRerank(topK, rerank)
			assert.GreaterOrEqual(t, gotRerank, gotTopK,
				"top_k=%d rerank_top_k=%d", topK, rerank)
			assert.LessOrEqual(t, gotRerank, l.MaxTopK)
			assert.GreaterOrEqual(t, gotTopK, 1)
		}
	}
}
