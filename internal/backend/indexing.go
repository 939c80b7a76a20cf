package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kbforge/kbmcp/internal/config"
	kberrors "github.com/kbforge/kbmcp/internal/errors"
	"github.com/kbforge/kbmcp/internal/iam"
)

// JobRequest describes one indexing run over a document source.
type JobRequest struct {
	// SourceBucket and SourcePrefix locate the documents to index.
	SourceBucket string
	SourcePrefix string
	// Extensions limits which files the pipeline picks up.
	Extensions []string
	// Description is free-form text attached to the run.
	Description string
}

type runSource struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix,omitempty"`
}

type startRunRequest struct {
	ProjectID   string    `json:"project_id,omitempty"`
	Source      runSource `json:"source"`
	Extensions  []string  `json:"extensions,omitempty"`
	Description string    `json:"description,omitempty"`
}

type startRunResponse struct {
	JobID string `json:"job_id"`
}

// IndexingClient submits indexing runs to the control API. Submission
// is fire-and-forget: acceptance means the backend owns the build from
// here, and progress is observed through the version catalog, not by
// waiting on this call.
type IndexingClient struct {
	baseURL   string
	kbID      string
	projectID string
	tokens    iam.TokenSource
	client    *http.Client
	timeout   time.Duration
}

// NewIndexingClient builds a submission client from configuration.
// tokens must be the indexing-scope source.
func NewIndexingClient(backend config.BackendConfig, tokens iam.TokenSource) *IndexingClient {
	return &IndexingClient{
		baseURL:   strings.TrimRight(backend.IndexingURL, "/"),
		kbID:      backend.KnowledgeBaseID,
		projectID: backend.ProjectID,
		tokens:    tokens,
		client:    newHTTPClient(),
		timeout:   backend.Timeout(),
	}
}

// StartIndexing submits one indexing run. Any 2xx acceptance counts as
// submitted. The returned job id may be empty when the backend answers
// with an empty body; the new version still appears in the catalog once
// the build starts.
func (c *IndexingClient) StartIndexing(ctx context.Context, job JobRequest) (string, error) {
	if c.baseURL == "" {
		return "", kberrors.ConfigError("backend.indexing_url is not configured", nil).
			WithSuggestion("Set backend.indexing_url in config or KBMCP_INDEXING_URL")
	}
	if c.kbID == "" {
		return "", kberrors.ConfigError("backend.knowledge_base_id is not configured", nil).
			WithSuggestion("Set backend.knowledge_base_id in config or KBMCP_KNOWLEDGE_BASE_ID")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	reqBody := startRunRequest{
		ProjectID: c.projectID,
		Source: runSource{
			Bucket: job.SourceBucket,
			Prefix: job.SourcePrefix,
		},
		Extensions:  job.Extensions,
		Description: job.Description,
	}

	endpoint := fmt.Sprintf("%s/api/v1/knowledge-bases/%s/runs", c.baseURL, url.PathEscape(c.kbID))

	start := time.Now()
	status, body, err := postJSON(ctx, c.client, endpoint, token, reqBody, c.timeout)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		// Submitted.
	case http.StatusUnauthorized:
		invalidateToken(c.tokens)
		return "", kberrors.New(kberrors.ErrCodeUpstreamRejected,
			"indexing submission was rejected as unauthorized", nil).
			WithDetail("status", fmt.Sprintf("%d", status))
	default:
		return "", kberrors.SubmissionError(
			fmt.Sprintf("indexing submission failed with status %d", status), nil).
			WithDetail("response", excerpt(body))
	}

	var result startRunResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			// Some deployments answer 202 with a non-JSON body. The run
			// was accepted either way.
			slog.Warn("indexing_response_unparsed",
				slog.Int("status", status),
				slog.String("error", err.Error()))
		}
	}
	if result.JobID == "" {
		slog.Warn("indexing_submitted_without_job_id", slog.Int("status", status))
	}

	slog.Debug("indexing_submitted",
		slog.String("job_id", result.JobID),
		slog.Int("status", status),
		slog.String("source_prefix", job.SourcePrefix),
		slog.Duration("duration", time.Since(start)))

	return result.JobID, nil
}
