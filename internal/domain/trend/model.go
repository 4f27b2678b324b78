package trend

import (
	"sort"
	"time"
)

// ContentItem is a single article attached to a trend. Either ImageURL or
// ImageHash is set, depending on whether the deployment copies images into
// the blob store or links them in place.
type ContentItem struct {
	Source    string `json:"source"`
	Link      string `json:"link"`
	Score     int    `json:"score"`
	ImageURL  string `json:"image_url,omitempty"`
	ImageHash string `json:"image_hash,omitempty"`
}

// Trend represents a topic observed as popular at a specific location at a
// specific moment. The composite key is (Name, LocationWOEID, ObservedAt).
type Trend struct {
	Name          string        `json:"name"`
	LocationWOEID int64         `json:"location_woeid"`
	ObservedAt    time.Time     `json:"observed_at"`
	Rating        float64       `json:"rating"`
	Content       []ContentItem `json:"content,omitempty"`
	HasContent    bool          `json:"has_content"`
}

// Key identifies a Trend for lookups and content-aggregation tasks.
type Key struct {
	Name          string    `json:"name"`
	LocationWOEID int64     `json:"location_woeid"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Key returns the composite key for this trend.
func (t Trend) Key() Key {
	return Key{Name: t.Name, LocationWOEID: t.LocationWOEID, ObservedAt: t.ObservedAt}
}

// BestContent returns the highest scored content item, or nil when the trend
// has no content.
func (t Trend) BestContent() *ContentItem {
	if len(t.Content) == 0 {
		return nil
	}

	best := 0
	for i := range t.Content {
		if t.Content[i].Score > t.Content[best].Score {
			best = i
		}
	}

	return &t.Content[best]
}

// SortedContent returns the trend's content ordered by score, highest first.
func (t Trend) SortedContent() []ContentItem {
	out := make([]ContentItem, len(t.Content))
	copy(out, t.Content)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// MergeContent appends the incoming items whose links are not yet attached
// and reports how many were fresh. Items already present are dropped, so
// merging the same batch twice adds nothing and redelivered appends stay
// no-ops.
func MergeContent(existing, incoming []ContentItem) ([]ContentItem, int) {
	attached := make(map[string]bool, len(existing))
	for _, item := range existing {
		attached[item.Link] = true
	}

	merged := existing
	fresh := 0
	for _, item := range incoming {
		if attached[item.Link] {
			continue
		}
		attached[item.Link] = true
		merged = append(merged, item)
		fresh++
	}

	return merged, fresh
}

// ScaleRating normalizes an unscaled rating into the 1-100 display range.
// Ratings below the range floor clamp to 1, above the ceiling to 100.
func ScaleRating(unscaled float64) float64 {
	scaled := (99*(unscaled-1))/9 + 1

	if scaled < 1 {
		return 1
	}
	if scaled > 100 {
		return 100
	}

	return scaled
}
