// Package iam exchanges service credentials for bearer tokens.
//
// The backend uses two independent credential scopes: query-scope for
// retrieval and indexing-scope for triggering builds. Each scope gets
// its own TokenSource; they are never merged, so a leaked query key
// cannot start rebuilds.
package iam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	kberrors "github.com/kbforge/kbmcp/internal/errors"
)

const (
	// DefaultTimeout bounds a single token exchange call.
	DefaultTimeout = 30 * time.Second

	// defaultExpirySeconds is assumed when the response omits expires_in.
	defaultExpirySeconds = 3600

	tokenPath = "/api/v1/auth/token"
)

// Credentials is one service credential pair.
type Credentials struct {
	KeyID  string
	Secret string
}

// IsSet reports whether both halves are present.
func (c Credentials) IsSet() bool {
	return c.KeyID != "" && c.Secret != ""
}

// Token is an issued bearer token with its expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenSource provides a valid bearer token for one credential scope.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client exchanges credentials for tokens against the IAM service.
// It does not cache; wrap it in a CachedTokenSource for reuse.
type Client struct {
	baseURL string
	creds   Credentials
	client  *http.Client
}

// NewClient creates an IAM client for one credential scope.
//
// The http.Client carries no Timeout of its own; each call is bounded
// by a per-request context deadline so caller timeouts stay in charge.
func NewClient(baseURL string, creds Credentials) *Client {
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		client:  &http.Client{},
	}
}

type tokenRequest struct {
	KeyID  string `json:"keyId"`
	Secret string `json:"secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Exchange performs one token exchange call.
func (c *Client) Exchange(ctx context.Context) (Token, error) {
	if !c.creds.IsSet() {
		return Token{}, kberrors.New(kberrors.ErrCodeCredentialsMissing,
			"IAM credentials are not configured", nil).
			WithSuggestion("Set the key_id/secret pair for this scope (config or KBMCP_* env)")
	}
	if c.baseURL == "" {
		return Token{}, kberrors.ConfigError("backend.iam_url is not configured", nil)
	}

	body, err := json.Marshal(tokenRequest{KeyID: c.creds.KeyID, Secret: c.creds.Secret})
	if err != nil {
		return Token{}, kberrors.InternalError("failed to marshal token request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	url := c.baseURL + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Token{}, kberrors.InternalError("failed to build token request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Token{}, kberrors.New(kberrors.ErrCodeNetworkTimeout,
				"token exchange timed out", err)
		}
		return Token{}, kberrors.New(kberrors.ErrCodeTokenExchange,
			"token exchange request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Token{}, kberrors.New(kberrors.ErrCodeTokenExchange,
			fmt.Sprintf("token exchange failed with status %d", resp.StatusCode), nil).
			WithDetail("status", fmt.Sprintf("%d", resp.StatusCode)).
			WithDetail("response", string(respBody))
	}

	var result tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Token{}, kberrors.New(kberrors.ErrCodeTokenExchange,
			"failed to decode token response", err)
	}
	if result.AccessToken == "" {
		return Token{}, kberrors.New(kberrors.ErrCodeTokenExchange,
			"token response missing access_token", nil)
	}

	expiresIn := result.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpirySeconds
	}

	return Token{
		AccessToken: result.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}
