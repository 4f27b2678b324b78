// internal/client/twitter/token.go

package twitter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trendpress/internal/adapter/cache"
)

const (
	tokenID       = "twitter_api_token"
	tokenCacheTTL = time.Hour
	tokenEndpoint = "/oauth2/token"
)

// TokenRecord is the durable fallback behind the token cache.
type TokenRecord interface {
	Get(ctx context.Context, id string) (string, error)
	Set(ctx context.Context, id, token string) error
	Delete(ctx context.Context, id string) error
}

// TokenSource produces application-only bearer tokens. Lookup order is cache,
// durable record, credential exchange; each successful exchange is written
// back through both layers.
type TokenSource struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	cache          cache.Cache
	record         TokenRecord
	client         *http.Client
}

// NewTokenSource creates a token source for the given API credentials.
func NewTokenSource(baseURL, consumerKey, consumerSecret string, c cache.Cache, record TokenRecord, timeout time.Duration) *TokenSource {
	return &TokenSource{
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		cache:          c,
		record:         record,
		client:         &http.Client{Timeout: timeout},
	}
}

// Token returns a bearer token, consulting the cache and the durable record
// before exchanging credentials.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	var cached string
	if err := ts.cache.Get(ctx, tokenID, &cached); err == nil && cached != "" {
		return cached, nil
	}

	if stored, err := ts.record.Get(ctx, tokenID); err == nil && stored != "" {
		if err := ts.cache.Set(ctx, tokenID, stored, tokenCacheTTL); err != nil {
			slog.Warn("failed to cache bearer token", "error", err)
		}
		return stored, nil
	}

	return ts.refresh(ctx)
}

// Invalidate discards the current token from both layers. Called when the
// upstream rejects a request as unauthorized.
func (ts *TokenSource) Invalidate(ctx context.Context) {
	if err := ts.cache.Delete(ctx, tokenID); err != nil {
		slog.Warn("failed to evict cached token", "error", err)
	}
	if err := ts.record.Delete(ctx, tokenID); err != nil {
		slog.Warn("failed to delete stored token", "error", err)
	}
}

// refresh exchanges consumer credentials for a fresh bearer token and writes
// it through the cache and the durable record.
func (ts *TokenSource) refresh(ctx context.Context) (string, error) {
	credentials := fmt.Sprintf("%s:%s",
		url.QueryEscape(ts.consumerKey), url.QueryEscape(ts.consumerSecret))
	encoded := base64.StdEncoding.EncodeToString([]byte(credentials))

	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.baseURL+tokenEndpoint, body)
	if err != nil {
		return "", fmt.Errorf("error building token request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+encoded)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error exchanging credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var payload struct {
		TokenType   string `json:"token_type"`
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("error decoding token response: %w", err)
	}

	if payload.TokenType != "bearer" || payload.AccessToken == "" {
		return "", errors.New("token exchange returned unexpected payload")
	}

	if err := ts.cache.Set(ctx, tokenID, payload.AccessToken, tokenCacheTTL); err != nil {
		slog.Warn("failed to cache bearer token", "error", err)
	}
	if err := ts.record.Set(ctx, tokenID, payload.AccessToken); err != nil {
		slog.Warn("failed to persist bearer token", "error", err)
	}

	return payload.AccessToken, nil
}
