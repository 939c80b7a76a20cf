// Package backend talks to the managed knowledge-base service: the
// retrieval API on the query scope and the indexing control API on the
// indexing scope. Each client carries its own TokenSource so tokens
// from one scope can never leak into the other.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	kberrors "github.com/kbforge/kbmcp/internal/errors"
	"github.com/kbforge/kbmcp/internal/iam"
)

// newHTTPClient builds the pooled HTTP client shared by one backend
// client. The client itself carries no Timeout; per-request context
// deadlines stay in charge, so a caller-supplied deadline is never
// silently overridden.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     10 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// postJSON sends one authenticated JSON POST bounded by timeout and
// returns the status code and the full response body. Transport
// failures come back typed; HTTP status handling is the caller's job.
func postJSON(ctx context.Context, client *http.Client, url, token string, payload any, timeout time.Duration) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, kberrors.InternalError("failed to marshal request body", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, kberrors.InternalError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, kberrors.New(kberrors.ErrCodeNetworkTimeout,
				"backend request timed out", err)
		}
		return 0, nil, kberrors.UpstreamError("backend request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, kberrors.UpstreamError("failed to read backend response", err)
	}
	return resp.StatusCode, body, nil
}

// invalidateToken drops the cached token behind a TokenSource if it
// supports invalidation. Used after a 401 so the next call starts from
// a fresh exchange; the rejected call itself is not retried.
func invalidateToken(src iam.TokenSource) {
	if inv, ok := src.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
}

// excerpt trims a response body to a loggable size.
func excerpt(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
