package iam

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// refreshMargin is how long before expiry a cached token is considered
// stale. Refreshing early keeps in-flight requests from racing expiry.
const refreshMargin = 5 * time.Minute

// CachedTokenSource caches tokens from an underlying exchanger and
// refreshes them shortly before expiry. Concurrent callers share one
// exchange call instead of stampeding the IAM service.
type CachedTokenSource struct {
	name     string
	exchange func(ctx context.Context) (Token, error)

	mu    sync.RWMutex
	token Token

	group singleflight.Group
}

// NewCachedTokenSource wraps an IAM client with caching. The name tags
// log lines and singleflight keys; use the credential scope ("query",
// "indexing") so the two caches stay distinguishable.
func NewCachedTokenSource(name string, client *Client) *CachedTokenSource {
	return &CachedTokenSource{
		name:     name,
		exchange: client.Exchange,
	}
}

// Token returns a valid bearer token, exchanging credentials if the
// cached one is missing or within refreshMargin of expiry.
func (s *CachedTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()

	if tok.AccessToken != "" && time.Until(tok.ExpiresAt) > refreshMargin {
		return tok.AccessToken, nil
	}

	v, err, _ := s.group.Do(s.name, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// refreshed between our RUnlock and Do.
		s.mu.RLock()
		cur := s.token
		s.mu.RUnlock()
		if cur.AccessToken != "" && time.Until(cur.ExpiresAt) > refreshMargin {
			return cur.AccessToken, nil
		}

		start := time.Now()
		fresh, err := s.exchange(ctx)
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		s.token = fresh
		s.mu.Unlock()

		slog.Debug("iam_token_refreshed",
			slog.String("scope", s.name),
			slog.Duration("duration", time.Since(start)),
			slog.Time("expires_at", fresh.ExpiresAt))
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token so the next Token call exchanges
// fresh credentials. Callers use it after an upstream 401; the failed
// request itself is not retried.
func (s *CachedTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = Token{}
	s.mu.Unlock()
	slog.Debug("iam_token_invalidated", slog.String("scope", s.name))
}
