// Package telemetry collects in-process search metrics: per-mode and
// per-version query counts, cache hits, rerank degradations, latency
// distribution, and recent zero-result queries. Everything stays local
// to the process and is exposed through the kbmcp://metrics resource;
// nothing is reported externally.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SearchMode identifies which search surface handled a query.
type SearchMode string

const (
	ModeSearch   SearchMode = "search"
	ModeAdvanced SearchMode = "search_advanced"
)

// LatencyBucket is a bucket in the end-to-end latency histogram.
type LatencyBucket string

const (
	BucketUnder10ms  LatencyBucket = "lt_10ms"
	BucketUnder50ms  LatencyBucket = "lt_50ms"
	BucketUnder100ms LatencyBucket = "lt_100ms"
	BucketUnder500ms LatencyBucket = "lt_500ms"
	BucketOver500ms  LatencyBucket = "gte_500ms"
)

// LatencyToBucket maps a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketUnder10ms
	case ms < 50:
		return BucketUnder50ms
	case ms < 100:
		return BucketUnder100ms
	case ms < 500:
		return BucketUnder500ms
	default:
		return BucketOver500ms
	}
}

// QueryEvent is one completed (or failed) search, as seen at the tool
// boundary.
type QueryEvent struct {
	Query       string
	Mode        SearchMode
	VersionID   string
	ResultCount int
	Reranked    bool
	Degraded    bool
	Cached      bool
	ErrorCode   string
	Latency     time.Duration
}

// ring is a fixed-capacity FIFO of the most recent items.
type ring[T any] struct {
	items []T
	next  int
	full  bool
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) add(item T) {
	r.items[r.next] = item
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

// all returns the contents oldest-first.
func (r *ring[T]) all() []T {
	if !r.full {
		return append([]T(nil), r.items[:r.next]...)
	}
	out := make([]T, 0, len(r.items))
	out = append(out, r.items[r.next:]...)
	return append(out, r.items[:r.next]...)
}

// ExtractTerms splits a query into lowercase terms of length >= 3 for
// frequency tracking.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount pairs a query term with how often it was seen.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is an immutable view of collected metrics, shaped for the
// metrics resource.
type Snapshot struct {
	TotalQueries    int64                    `json:"total_queries"`
	ModeCounts      map[SearchMode]int64     `json:"mode_counts"`
	VersionCounts   map[string]int64         `json:"version_counts"`
	CacheHits       int64                    `json:"cache_hits"`
	RerankedCount   int64                    `json:"reranked_count"`
	DegradedCount   int64                    `json:"degraded_count"`
	ErrorCounts     map[string]int64         `json:"error_counts,omitempty"`
	ZeroResultCount int64                    `json:"zero_result_count"`
	ZeroResults     []string                 `json:"zero_result_queries,omitempty"`
	TopTerms        []TermCount              `json:"top_terms,omitempty"`
	Latency         map[LatencyBucket]int64  `json:"latency_distribution"`
	ExactRepeats    int64                    `json:"exact_repeat_count"`
	Since           time.Time                `json:"since"`
}

// CacheHitRate returns cache hits as a fraction of all queries.
func (s *Snapshot) CacheHitRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.TotalQueries)
}

// ZeroResultRate returns zero-result queries as a fraction of all
// successful queries.
func (s *Snapshot) ZeroResultRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries)
}

// Config sizes the bounded structures inside QueryMetrics.
type Config struct {
	TopTermsCapacity      int
	ZeroResultsCapacity   int
	RecentQueriesCapacity int
}

// DefaultConfig returns the capacities used by the server.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
	}
}

// QueryMetrics accumulates search telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.RWMutex

	totalQueries  int64
	modeCounts    map[SearchMode]int64
	versionCounts map[string]int64
	cacheHits     int64
	rerankedCount int64
	degradedCount int64
	errorCounts   map[string]int64

	zeroResultCount int64
	zeroResults     *ring[string]
	topTerms        *lru.Cache[string, int64]
	latencies       map[LatencyBucket]int64

	// recentQueries holds hashes of recent query text so exact repeats
	// can be counted without retaining the queries themselves.
	recentQueries *lru.Cache[string, struct{}]
	exactRepeats  int64

	startTime time.Time
}

// NewQueryMetrics creates a collector with default capacities.
func NewQueryMetrics() *QueryMetrics {
	return NewQueryMetricsWithConfig(DefaultConfig())
}

// NewQueryMetricsWithConfig creates a collector with custom capacities.
func NewQueryMetricsWithConfig(cfg Config) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 500
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recentQueries, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryMetrics{
		modeCounts:    make(map[SearchMode]int64),
		versionCounts: make(map[string]int64),
		errorCounts:   make(map[string]int64),
		zeroResults:   newRing[string](cfg.ZeroResultsCapacity),
		topTerms:      topTerms,
		latencies:     make(map[LatencyBucket]int64),
		recentQueries: recentQueries,
		startTime:     time.Now(),
	}
}

// Record captures one query event.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	if event.Mode != "" {
		m.modeCounts[event.Mode]++
	}
	if event.VersionID != "" {
		m.versionCounts[event.VersionID]++
	}
	if event.Cached {
		m.cacheHits++
	}
	if event.Reranked {
		m.rerankedCount++
	}
	if event.Degraded {
		m.degradedCount++
	}
	if event.ErrorCode != "" {
		m.errorCounts[event.ErrorCode]++
		return
	}

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.ResultCount == 0 {
		m.zeroResults.add(strings.TrimSpace(event.Query))
		m.zeroResultCount++
	}

	m.latencies[LatencyToBucket(event.Latency)]++

	hash := hashQuery(event.Query)
	if _, seen := m.recentQueries.Get(hash); seen {
		m.exactRepeats++
	}
	m.recentQueries.Add(hash, struct{}{})
}

func hashQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

// Snapshot returns a copy of the current metrics.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	modes := make(map[SearchMode]int64, len(m.modeCounts))
	for k, v := range m.modeCounts {
		modes[k] = v
	}
	versions := make(map[string]int64, len(m.versionCounts))
	for k, v := range m.versionCounts {
		versions[k] = v
	}
	var errs map[string]int64
	if len(m.errorCounts) > 0 {
		errs = make(map[string]int64, len(m.errorCounts))
		for k, v := range m.errorCounts {
			errs[k] = v
		}
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	sort.Slice(topTerms, func(i, j int) bool {
		if topTerms[i].Count != topTerms[j].Count {
			return topTerms[i].Count > topTerms[j].Count
		}
		return topTerms[i].Term < topTerms[j].Term
	})

	return &Snapshot{
		TotalQueries:    m.totalQueries,
		ModeCounts:      modes,
		VersionCounts:   versions,
		CacheHits:       m.cacheHits,
		RerankedCount:   m.rerankedCount,
		DegradedCount:   m.degradedCount,
		ErrorCounts:     errs,
		ZeroResultCount: m.zeroResultCount,
		ZeroResults:     m.zeroResults.all(),
		TopTerms:        topTerms,
		Latency:         latencies,
		ExactRepeats:    m.exactRepeats,
		Since:           m.startTime,
	}
}
