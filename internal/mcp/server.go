package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kbforge/kbmcp/internal/backend"
	"github.com/kbforge/kbmcp/internal/blobstore"
	"github.com/kbforge/kbmcp/internal/config"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
	"github.com/kbforge/kbmcp/internal/lifecycle"
	"github.com/kbforge/kbmcp/internal/search"
	"github.com/kbforge/kbmcp/internal/telemetry"
	"github.com/kbforge/kbmcp/pkg/version"
)

// Server is the MCP server for KBMCP. It exposes the search router,
// the version lifecycle manager and the document store as tools for AI
// agents. All state lives in the injected components; the server only
// validates inputs, maps errors and records telemetry.
type Server struct {
	mcp      *mcp.Server
	searcher search.Searcher
	manager  *lifecycle.Manager
	store    blobstore.Store
	config   *config.Config
	logger   *slog.Logger

	// Query telemetry (optional, set via SetMetrics).
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// NewServer creates a new MCP server around the given components.
func NewServer(searcher search.Searcher, manager *lifecycle.Manager, store blobstore.Store, cfg *config.Config) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if manager == nil {
		return nil, errors.New("lifecycle manager is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		searcher: searcher,
		manager:  manager,
		store:    store,
		config:   cfg,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "kbmcp",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// SetMetrics sets the query metrics collector. When set, the
// kbmcp://metrics resource is registered and search tools record
// telemetry.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerMetricsResource()
	}
}

// MCPServer returns the underlying SDK server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "kbmcp", version.Version
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search the knowledge base. Runs a hybrid retrieval query against the active index version and returns the best matching document fragments with scores.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_advanced",
		Description: "Two-stage knowledge base search: retrieves a wider candidate set and reranks it with a cross-encoder for higher precision. Falls back to single-stage results if reranking is unavailable.",
	}, s.handleSearchAdvanced)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "start_indexing",
		Description: "Submit an indexing run to build a new knowledge base version from uploaded documents. Returns immediately after submission; the new version appears in the catalog once the build completes. Use get_versions to watch for it.",
	}, s.handleStartIndexing)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_versions",
		Description: "List all knowledge base index versions from the catalog with their status (PENDING, RUNNING, READY, FAILED) and which one is active for searches.",
	}, s.handleGetVersions)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "update_active_version",
		Description: "Switch searches to a different index version. Provide a READY version id, or omit it to auto-select the most recently built READY version.",
	}, s.handleUpdateActiveVersion)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "storage_upload",
		Description: "Upload a text document to knowledge base storage. Uploaded documents are included the next time an indexing run is started.",
	}, s.handleStorageUpload)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "storage_download",
		Description: "Download a document from knowledge base storage by key. Objects over 1 MB are rejected; binary content is returned base64-encoded.",
	}, s.handleStorageDownload)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "storage_list",
		Description: "List objects in knowledge base storage under a key prefix.",
	}, s.handleStorageList)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "storage_delete",
		Description: "Delete a document from knowledge base storage. Deletion takes effect in search results only after the next indexing run and promotion.",
	}, s.handleStorageDelete)

	s.logger.Info("MCP tools registered", slog.Int("count", 9))
}

// handleSearch is the SDK handler for the search tool.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("search started",
		slog.String("request_id", requestID),
		slog.Int("top_k", input.TopK))

	resp, err := s.searcher.Search(ctx, input.Query, input.TopK)
	duration := time.Since(start)

	if err != nil {
		s.recordQuery(telemetry.QueryEvent{
			Query:     input.Query,
			Mode:      telemetry.ModeSearch,
			ErrorCode: kberrors.GetCode(err),
			Latency:   duration,
		})
		s.logger.Error("search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	s.recordQuery(telemetry.QueryEvent{
		Query:       resp.Query,
		Mode:        telemetry.ModeSearch,
		VersionID:   resp.VersionID,
		ResultCount: len(resp.Results),
		Cached:      resp.Cached,
		Latency:     duration,
	})
	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(resp.Results)),
		slog.Bool("cached", resp.Cached))

	return nil, toSearchOutput(resp), nil
}

// handleSearchAdvanced is the SDK handler for the search_advanced tool.
func (s *Server) handleSearchAdvanced(ctx context.Context, _ *mcp.CallToolRequest, input SearchAdvancedInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("search_advanced started",
		slog.String("request_id", requestID),
		slog.Int("top_k", input.TopK),
		slog.Int("rerank_top_k", input.RerankTopK))

	resp, err := s.searcher.SearchAdvanced(ctx, input.Query, input.TopK, input.RerankTopK)
	duration := time.Since(start)

	if err != nil {
		s.recordQuery(telemetry.QueryEvent{
			Query:     input.Query,
			Mode:      telemetry.ModeAdvanced,
			ErrorCode: kberrors.GetCode(err),
			Latency:   duration,
		})
		s.logger.Error("search_advanced failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	s.recordQuery(telemetry.QueryEvent{
		Query:       resp.Query,
		Mode:        telemetry.ModeAdvanced,
		VersionID:   resp.VersionID,
		ResultCount: len(resp.Results),
		Reranked:    resp.Reranked,
		Degraded:    s.config.Search.RerankEnabled && !resp.Reranked,
		Cached:      resp.Cached,
		Latency:     duration,
	})
	s.logger.Info("search_advanced completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(resp.Results)),
		slog.Bool("reranked", resp.Reranked))

	return nil, toSearchOutput(resp), nil
}

// handleStartIndexing is the SDK handler for the start_indexing tool.
func (s *Server) handleStartIndexing(ctx context.Context, _ *mcp.CallToolRequest, input StartIndexingInput) (
	*mcp.CallToolResult,
	StartIndexingOutput,
	error,
) {
	requestID := generateRequestID()

	prefix := strings.TrimSpace(input.SourcePrefix)
	if prefix == "" {
		prefix = s.config.Storage.DocumentsPrefix
	}
	if strings.TrimSpace(prefix) == "" {
		err := kberrors.New(kberrors.ErrCodeInvalidPrefix, "source prefix must not be empty", nil).
			WithSuggestion("Pass source_prefix or set storage.documents_prefix in the config.")
		return nil, StartIndexingOutput{}, MapError(err)
	}

	extensions := input.Extensions
	if len(extensions) == 0 {
		extensions = s.config.Indexing.Extensions
	}

	job := backend.JobRequest{
		SourceBucket: s.config.Storage.Bucket,
		SourcePrefix: prefix,
		Extensions:   extensions,
		Description:  input.Description,
	}

	jobID, err := s.manager.StartIndexing(ctx, job)
	if err != nil {
		s.logger.Error("start_indexing failed",
			slog.String("request_id", requestID),
			slog.String("source_prefix", prefix),
			slog.String("error", err.Error()))
		return nil, StartIndexingOutput{}, MapError(err)
	}

	s.logger.Info("start_indexing submitted",
		slog.String("request_id", requestID),
		slog.String("job_id", jobID),
		slog.String("source_prefix", prefix))

	return nil, StartIndexingOutput{
		JobID:       jobID,
		Status:      "submitted",
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
		Note:        "Indexing was accepted. The new version appears in the catalog once the build finishes; it is not searchable until promoted.",
	}, nil
}

// handleGetVersions is the SDK handler for the get_versions tool.
func (s *Server) handleGetVersions(ctx context.Context, _ *mcp.CallToolRequest, _ GetVersionsInput) (
	*mcp.CallToolResult,
	GetVersionsOutput,
	error,
) {
	list, err := s.manager.Versions(ctx)
	if err != nil {
		s.logger.Error("get_versions failed", slog.String("error", err.Error()))
		return nil, GetVersionsOutput{}, MapError(err)
	}

	output := GetVersionsOutput{
		ActiveVersionID:  list.ActiveID,
		Count:            len(list.Versions),
		SkippedMalformed: list.Skipped,
		Versions:         make([]VersionOutput, 0, len(list.Versions)),
	}
	for _, v := range list.Versions {
		output.Versions = append(output.Versions, VersionOutput{
			VersionID:    v.VersionID,
			Status:       string(v.Status),
			CreatedAt:    v.CreatedAt.UTC().Format(time.RFC3339),
			SourcePrefix: v.SourcePrefix,
			FileCount:    v.FileCount,
			Active:       v.VersionID == list.ActiveID,
		})
	}

	return nil, output, nil
}

// handleUpdateActiveVersion is the SDK handler for the
// update_active_version tool.
func (s *Server) handleUpdateActiveVersion(ctx context.Context, _ *mcp.CallToolRequest, input UpdateActiveVersionInput) (
	*mcp.CallToolResult,
	UpdateActiveVersionOutput,
	error,
) {
	requestID := generateRequestID()

	// A provided-but-blank id is a caller mistake, distinct from the
	// omitted id that requests auto-selection.
	if input.VersionID != "" && strings.TrimSpace(input.VersionID) == "" {
		err := kberrors.New(kberrors.ErrCodeInvalidVersionID, "version_id must not be blank", nil).
			WithSuggestion("Pass a catalog version id, or omit version_id to auto-select the latest READY version.")
		return nil, UpdateActiveVersionOutput{}, MapError(err)
	}

	promotion, err := s.manager.Promote(ctx, input.VersionID)
	if err != nil {
		s.logger.Error("update_active_version failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, UpdateActiveVersionOutput{}, MapError(err)
	}

	s.logger.Info("update_active_version applied",
		slog.String("request_id", requestID),
		slog.String("applied", promotion.Applied),
		slog.Bool("changed", promotion.Changed))

	return nil, UpdateActiveVersionOutput{
		Applied:  promotion.Applied,
		Previous: promotion.Previous,
		Changed:  promotion.Changed,
	}, nil
}

// toSearchOutput converts a router response to the tool output shape.
func toSearchOutput(resp *search.Response) SearchOutput {
	output := SearchOutput{
		Query:     resp.Query,
		VersionID: resp.VersionID,
		Count:     len(resp.Results),
		Reranked:  resp.Reranked,
		Cached:    resp.Cached,
		Results:   make([]ResultOutput, 0, len(resp.Results)),
	}
	for _, r := range resp.Results {
		output.Results = append(output.Results, ResultOutput{
			ID:       r.ID,
			Content:  r.Content,
			Score:    r.Score,
			Metadata: r.Metadata,
		})
	}
	return output
}

// recordQuery records a telemetry event if a collector is attached.
func (s *Server) recordQuery(event telemetry.QueryEvent) {
	s.mu.RLock()
	m := s.metrics
	s.mu.RUnlock()

	if m != nil {
		m.Record(event)
	}
}

// Serve starts the server on the given transport and blocks until the
// context is canceled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request id for log
// correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
