// internal/service/content/aggregator.go

package content

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"trendpress/internal/adapter/cache"
	"trendpress/internal/domain/source"
	"trendpress/internal/domain/trend"
)

// FeedEntry is the cached, parsed form of one syndication feed item.
type FeedEntry struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// ImageStore is the optional blob store for copied article images.
type ImageStore interface {
	Put(ctx context.Context, data []byte, contentType, hash string) (string, error)
}

// Config tunes the content aggregator.
type Config struct {
	// ScoreThreshold is exclusive: only entries scoring strictly above it
	// are retained.
	ScoreThreshold int

	// FeedTTL bounds how long parsed feeds are served from cache.
	FeedTTL time.Duration

	// CopyImages switches the deployment variant that copies each selected
	// image into the blob store instead of hotlinking it.
	CopyImages bool

	// FetchTimeout bounds individual image downloads when copying.
	FetchTimeout time.Duration
}

// Aggregator enriches trends with relevant syndicated articles. It is safe
// to invoke more than once for the same trend key: the store serializes and
// deduplicates appends, and feed fetches are absorbed by the cache.
type Aggregator struct {
	sources []source.FeedSource
	cache   cache.Cache
	trends  trend.Store
	scorer  ScoreStrategy
	images  *ImageSelector
	blobs   ImageStore
	config  Config
	parser  *gofeed.Parser
	client  *http.Client
}

// NewAggregator creates a content aggregator over the given feed-source
// registry. blobs may be nil when CopyImages is off.
func NewAggregator(
	sources []source.FeedSource,
	c cache.Cache,
	trends trend.Store,
	scorer ScoreStrategy,
	images *ImageSelector,
	blobs ImageStore,
	config Config,
) *Aggregator {
	if config.FeedTTL <= 0 {
		config.FeedTTL = time.Hour
	}

	return &Aggregator{
		sources: sources,
		cache:   c,
		trends:  trends,
		scorer:  scorer,
		images:  images,
		blobs:   blobs,
		config:  config,
		parser:  gofeed.NewParser(),
		client:  &http.Client{Timeout: config.FetchTimeout},
	}
}

// Aggregate collects relevant articles for the trend identified by key and
// appends them to its persisted record. An empty result is a no-op.
func (a *Aggregator) Aggregate(ctx context.Context, key trend.Key, locationName string) error {
	slog.Debug("aggregating content", "trend", key.Name, "location", locationName)

	var content []trend.ContentItem

	for _, src := range a.sources {
		for feedName, feedURL := range a.feedsFor(src, key.Name, locationName) {
			entries, err := a.feedEntries(ctx, src, feedName, feedURL, key.Name, locationName)
			if err != nil {
				// A broken feed never sinks the whole pass.
				slog.Warn("skipping feed",
					"source", src.Name, "feed", feedName, "trend", key.Name, "error", err)
				continue
			}

			content = append(content, a.relevantContent(ctx, src, entries, key.Name)...)
		}
	}

	if len(content) == 0 {
		return nil
	}

	slog.Debug("adding articles to trend", "count", len(content), "trend", key.Name)

	if err := a.trends.AppendContent(ctx, key, content); err != nil {
		return fmt.Errorf("error appending content to %s: %w", key.Name, err)
	}

	return nil
}

// feedsFor expands the source into concrete feed URLs. Query sources yield a
// single URL templated on trend and location.
func (a *Aggregator) feedsFor(src source.FeedSource, trendName, locationName string) map[string]string {
	if src.IsQuery() {
		return map[string]string{src.QueryFeed: src.ExpandQuery(trendName, locationName)}
	}
	return src.Feeds
}

// feedEntries returns parsed entries for the feed, from cache when possible.
// Query-source cache keys embed the trend and location to avoid cross-trend
// collisions.
func (a *Aggregator) feedEntries(ctx context.Context, src source.FeedSource, feedName, feedURL, trendName, locationName string) ([]FeedEntry, error) {
	cacheKey := fmt.Sprintf("%s-%s", src.Name, feedName)
	if src.IsQuery() {
		cacheKey = fmt.Sprintf("%s-%s-%s-%s", src.Name, feedName, trendName, locationName)
	}

	var entries []FeedEntry
	err := a.cache.Get(ctx, cacheKey, &entries)
	if err == nil {
		return entries, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("feed cache read failed", "key", cacheKey, "error", err)
	}

	feed, err := a.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("error parsing feed %s: %w", feedURL, err)
	}

	entries = make([]FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entries = append(entries, FeedEntry{
			Link:    item.Link,
			Title:   item.Title,
			Summary: item.Description,
		})
	}

	if err := a.cache.Set(ctx, cacheKey, entries, a.config.FeedTTL); err != nil {
		slog.Warn("feed cache write failed", "key", cacheKey, "error", err)
	}

	return entries, nil
}

// relevantContent scores the entries and resolves an image for each one that
// clears the threshold. Entries without a resolvable image are dropped.
func (a *Aggregator) relevantContent(ctx context.Context, src source.FeedSource, entries []FeedEntry, trendName string) []trend.ContentItem {
	var items []trend.ContentItem

	for _, entry := range entries {
		if entry.Link == "" {
			continue
		}

		label := src.Name
		if src.RelabelFromTitle {
			label = sourceLabel(entry.Title, label)
		}

		score := a.scorer.Score(trendName, Entry{Title: entry.Title, Summary: entry.Summary})
		if score <= a.config.ScoreThreshold {
			continue
		}

		imageURL, err := a.images.Select(ctx, entry.Link, src.UseOpenGraph)
		if err != nil {
			slog.Debug("article page unavailable",
				"link", entry.Link, "trend", trendName, "source", label, "error", err)
			continue
		}
		if imageURL == "" {
			continue
		}

		item := trend.ContentItem{Source: label, Link: entry.Link, Score: score}

		if a.config.CopyImages && a.blobs != nil {
			hash, err := a.copyImage(ctx, imageURL)
			if err != nil {
				slog.Debug("image copy failed",
					"image", imageURL, "trend", trendName, "source", label, "error", err)
				continue
			}
			item.ImageHash = hash
		} else {
			item.ImageURL = imageURL
		}

		items = append(items, item)
	}

	return items
}

// copyImage downloads the image and stores it content-addressed by the SHA-1
// of its URL, returning the hash reference.
func (a *Aggregator) copyImage(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("error building image request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading image body: %w", err)
	}

	if contentType == "" || len(data) == 0 {
		return "", errors.New("image response missing body or content type")
	}

	sum := sha1.Sum([]byte(imageURL))
	hash := hex.EncodeToString(sum[:])

	return a.blobs.Put(ctx, data, contentType, hash)
}

// sourceLabel re-derives the display label from a meta-aggregator entry
// title, which carries the real publisher as a suffix ("Headline - Outlet").
func sourceLabel(title, fallback string) string {
	idx := strings.LastIndex(title, " - ")
	if idx < 0 || idx+3 >= len(title) {
		return fallback
	}
	return strings.TrimSpace(title[idx+3:])
}
