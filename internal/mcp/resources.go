package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MetricsResourceURI identifies the query telemetry resource.
const MetricsResourceURI = "kbmcp://metrics"

// registerMetricsResource registers the metrics resource. Caller holds
// s.mu.
func (s *Server) registerMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "metrics",
			URI:         MetricsResourceURI,
			Description: "Search telemetry for this server process: query counts per mode and version, cache hit rate, rerank degradations, latency distribution, recent zero-result queries",
			MIMEType:    "application/json",
		},
		s.makeMetricsHandler(),
	)
}

// makeMetricsHandler creates the read handler for the metrics resource.
func (s *Server) makeMetricsHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		s.mu.RLock()
		metrics := s.metrics
		s.mu.RUnlock()

		if metrics == nil {
			return nil, NewInvalidParamsError("query metrics are not enabled")
		}

		content, err := json.MarshalIndent(metrics.Snapshot(), "", "  ")
		if err != nil {
			return nil, MapError(err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      MetricsResourceURI,
					MIMEType: "application/json",
					Text:     string(content),
				},
			},
		}, nil
	}
}
