// internal/client/plustrends/plustrends.go

// Package plustrends scrapes trending topic slugs from a public stream page.
// The provider exposes no API for this, so extraction is regex-based and
// fragile; output is treated as untrusted and goes through the same dedup
// and merge path as the primary source.
package plustrends

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"trendpress/internal/domain/location"
	"trendpress/internal/domain/source"
)

const maxTrends = 10

var slugPattern = regexp.MustCompile(`s/(\S*)/posts`)

// Client extracts worldwide trends from an HTML stream page.
type Client struct {
	pageURL string
	client  *http.Client
}

// NewClient creates a scraper for the given stream page URL.
func NewClient(pageURL string, timeout time.Duration) *Client {
	return &Client{
		pageURL: pageURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the source in logs and merge diagnostics.
func (c *Client) Name() string {
	return "plus"
}

// Trends returns up to ten trends scraped from the stream page. The page
// lists topics most-prominent-first; ranks are assigned in that order,
// 1-indexed. The page is worldwide only, so the location is ignored.
func (c *Client) Trends(ctx context.Context, _ location.Location) ([]source.RankedTrend, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error building scrape request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching stream page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stream page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading stream page: %w", err)
	}

	matches := slugPattern.FindAllStringSubmatch(string(body), -1)

	var trends []source.RankedTrend
	seen := make(map[string]bool)
	for _, m := range matches {
		name, err := url.QueryUnescape(m[1])
		if err != nil || name == "" || seen[name] {
			continue
		}
		seen[name] = true

		trends = append(trends, source.RankedTrend{Name: name, Rank: len(trends) + 1})
		if len(trends) == maxTrends {
			break
		}
	}

	return trends, nil
}
