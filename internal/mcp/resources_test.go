package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbmcp/internal/backend"
	"github.com/kbforge/kbmcp/internal/search"
	"github.com/kbforge/kbmcp/internal/telemetry"
)

func TestMetricsResource(t *testing.T) {
	// Given a server that has answered one search
	searcher := &fakeSearcher{resp: &search.Response{
		Query:     "pricing tiers",
		VersionID: "v-003",
		Results:   []backend.Result{{Content: "hit", Score: 0.8}},
	}}
	s := newTestServer(t, searcher, nil, nil)
	s.SetMetrics(telemetry.NewQueryMetrics())

	_, _, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "pricing tiers"})
	require.NoError(t, err)

	// When the metrics resource is read
	handler := s.makeMetricsHandler()
	result, err := handler(context.Background(), nil)

	// Then it returns the snapshot as pretty-printed JSON
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, MetricsResourceURI, result.Contents[0].URI)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var snap telemetry.Snapshot
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &snap))
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ModeCounts[telemetry.ModeSearch])
	assert.Equal(t, int64(1), snap.VersionCounts["v-003"])
}

func TestMetricsResource_NotEnabled(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	handler := s.makeMetricsHandler()
	_, err := handler(context.Background(), nil)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "not enabled")
}
