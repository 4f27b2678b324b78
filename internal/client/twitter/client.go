// internal/client/twitter/client.go

package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"trendpress/internal/domain/location"
	"trendpress/internal/domain/source"
)

const (
	locationsEndpoint = "/1.1/trends/available.json"
	trendsEndpoint    = "/1.1/trends/place.json?id=%d"
)

// APIError carries the upstream status for a failed request.
type APIError struct {
	Endpoint string
	Status   int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s request failed (status %d)", e.Endpoint, e.Status)
}

// Client talks to the trend API using application-only bearer auth. The
// trends and locations endpoints share a small rolling request window; 429
// responses surface as source.ErrRateLimited so callers can fail fast.
type Client struct {
	baseURL string
	tokens  *TokenSource
	client  *http.Client
}

// NewClient creates an API client.
func NewClient(baseURL string, tokens *TokenSource, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the source in logs and merge diagnostics.
func (c *Client) Name() string {
	return "twitter"
}

// Locations returns the locations the API has trend data for, excluding the
// given place-type codes.
func (c *Client) Locations(ctx context.Context, excludeTypeCodes []int) ([]location.Location, error) {
	body, err := c.get(ctx, locationsEndpoint)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Name      string `json:"name"`
		WOEID     int64  `json:"woeid"`
		ParentID  int64  `json:"parentid"`
		Country   string `json:"country"`
		CountryCD string `json:"countryCode"`
		PlaceType struct {
			Code int    `json:"code"`
			Name string `json:"name"`
		} `json:"placeType"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error decoding locations response: %w", err)
	}

	excluded := make(map[int]bool, len(excludeTypeCodes))
	for _, code := range excludeTypeCodes {
		excluded[code] = true
	}

	var locations []location.Location
	for _, l := range raw {
		if excluded[l.PlaceType.Code] {
			continue
		}
		locations = append(locations, location.Location{
			WOEID:       l.WOEID,
			Name:        l.Name,
			TypeName:    l.PlaceType.Name,
			TypeCode:    l.PlaceType.Code,
			ParentWOEID: l.ParentID,
			Country:     l.Country,
			CountryCode: l.CountryCD,
		})
	}

	return locations, nil
}

// Trends returns the ranked trends for the given location. Ranks follow the
// API's prominence order, 1-indexed.
func (c *Client) Trends(ctx context.Context, loc location.Location) ([]source.RankedTrend, error) {
	body, err := c.get(ctx, fmt.Sprintf(trendsEndpoint, loc.WOEID))
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Trends []struct {
			Name string `json:"name"`
		} `json:"trends"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error decoding trends response: %w", err)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	trends := make([]source.RankedTrend, 0, len(raw[0].Trends))
	for i, t := range raw[0].Trends {
		if t.Name == "" {
			continue
		}
		trends = append(trends, source.RankedTrend{Name: t.Name, Rank: i + 1})
	}

	return trends, nil
}

// get performs an authorized GET against the endpoint. A 401 invalidates the
// token and retries once with a fresh one.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	body, status, err := c.doAuthorized(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		c.tokens.Invalidate(ctx)
		body, status, err = c.doAuthorized(ctx, endpoint)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", endpoint, source.ErrRateLimited)
	case status != http.StatusOK:
		return nil, &APIError{Endpoint: endpoint, Status: status}
	}

	return body, nil
}

func (c *Client) doAuthorized(ctx context.Context, endpoint string) ([]byte, int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("error obtaining bearer token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error requesting %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var body []byte
	if resp.StatusCode == http.StatusOK {
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, 0, fmt.Errorf("error reading %s response: %w", endpoint, err)
		}
	}

	return body, resp.StatusCode, nil
}
