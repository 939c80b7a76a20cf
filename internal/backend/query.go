package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kbforge/kbmcp/internal/config"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
	"github.com/kbforge/kbmcp/internal/iam"
)

const (
	retrievePath = "/api/v2/retrieve"

	// RetrieveTimeout bounds a single-stage retrieval call.
	RetrieveTimeout = 60 * time.Second
	// RerankTimeout bounds a two-stage retrieve-and-rerank call, which
	// runs a cross-encoder on the backend and takes noticeably longer.
	RerankTimeout = 90 * time.Second

	// rerankModelSource tells the backend where the rerank model lives.
	rerankModelSource = "FOUNDATION_MODELS"
)

// Result is one retrieved chunk.
type Result struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type retrievalConfiguration struct {
	NumberOfResults int    `json:"number_of_results"`
	RetrievalType   string `json:"retrieval_type"`
}

type rerankingConfiguration struct {
	ModelName               string `json:"model_name"`
	ModelSource             string `json:"model_source"`
	NumberOfRerankedResults int    `json:"number_of_reranked_results"`
}

type retrieveRequest struct {
	KnowledgeBaseVersion   string                  `json:"knowledge_base_version"`
	Query                  string                  `json:"query"`
	RetrievalConfiguration retrievalConfiguration  `json:"retrieval_configuration"`
	RerankingConfiguration *rerankingConfiguration `json:"reranking_configuration,omitempty"`
}

type retrieveResponse struct {
	Results []Result `json:"results"`
}

// QueryClient calls the retrieval API. All calls target one explicit
// index version; the client knows nothing about which version is active.
type QueryClient struct {
	baseURL       string
	tokens        iam.TokenSource
	client        *http.Client
	retrievalType string
	rerankModel   string
}

// NewQueryClient builds a retrieval client from configuration. tokens
// must be the query-scope source.
func NewQueryClient(backend config.BackendConfig, search config.SearchConfig, tokens iam.TokenSource) *QueryClient {
	return &QueryClient{
		baseURL:       strings.TrimRight(backend.QueryURL, "/"),
		tokens:        tokens,
		client:        newHTTPClient(),
		retrievalType: strings.ToUpper(search.RetrievalType),
		rerankModel:   search.RerankModel,
	}
}

// Retrieve runs a single-stage search against the given index version
// and returns up to topK results, best first.
func (c *QueryClient) Retrieve(ctx context.Context, versionID, query string, topK int) ([]Result, error) {
	req := retrieveRequest{
		KnowledgeBaseVersion: versionID,
		Query:                query,
		RetrievalConfiguration: retrievalConfiguration{
			NumberOfResults: topK,
			RetrievalType:   c.retrievalType,
		},
	}
	return c.retrieve(ctx, req, RetrieveTimeout)
}

// RetrieveReranked runs a two-stage search: the backend retrieves
// rerankTopK candidates, reranks them with a cross-encoder, and returns
// the best topK.
func (c *QueryClient) RetrieveReranked(ctx context.Context, versionID, query string, topK, rerankTopK int) ([]Result, error) {
	req := retrieveRequest{
		KnowledgeBaseVersion: versionID,
		Query:                query,
		RetrievalConfiguration: retrievalConfiguration{
			NumberOfResults: rerankTopK,
			RetrievalType:   c.retrievalType,
		},
		RerankingConfiguration: &rerankingConfiguration{
			ModelName:               c.rerankModel,
			ModelSource:             rerankModelSource,
			NumberOfRerankedResults: topK,
		},
	}
	return c.retrieve(ctx, req, RerankTimeout)
}

func (c *QueryClient) retrieve(ctx context.Context, reqBody retrieveRequest, timeout time.Duration) ([]Result, error) {
	if c.baseURL == "" {
		return nil, kberrors.ConfigError("backend.query_url is not configured", nil).
			WithSuggestion("Set backend.query_url in config or KBMCP_QUERY_URL")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	status, body, err := postJSON(ctx, c.client, c.baseURL+retrievePath, token, reqBody, timeout)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusUnauthorized:
		invalidateToken(c.tokens)
		return nil, kberrors.New(kberrors.ErrCodeUpstreamRejected,
			"retrieval request was rejected as unauthorized", nil).
			WithDetail("status", fmt.Sprintf("%d", status))
	case status != http.StatusOK:
		return nil, kberrors.UpstreamError(
			fmt.Sprintf("retrieval failed with status %d", status), nil).
			WithDetail("response", excerpt(body))
	}

	var result retrieveResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, kberrors.UpstreamError("failed to decode retrieval response", err)
	}

	slog.Debug("backend_retrieve",
		slog.String("version_id", reqBody.KnowledgeBaseVersion),
		slog.Int("results", len(result.Results)),
		slog.Bool("reranked", reqBody.RerankingConfiguration != nil),
		slog.Duration("duration", time.Since(start)))

	return result.Results, nil
}
