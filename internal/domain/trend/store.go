package trend

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a trend key has no persisted record.
var ErrNotFound = errors.New("trend not found")

// ErrConflict is returned when a content append loses a concurrent update
// race after exhausting its retries.
var ErrConflict = errors.New("trend update conflict")

// Store defines persistence for trends.
type Store interface {
	// SaveAll upserts a batch of trends.
	SaveAll(ctx context.Context, trends []Trend) error

	// Get retrieves a trend by its composite key.
	Get(ctx context.Context, key Key) (*Trend, error)

	// AppendContent attaches content to the trend with the given key and
	// rescales its rating. The append is serialized per key and idempotent:
	// items whose link is already attached are dropped, and a redelivered
	// append of the same items is a no-op.
	AppendContent(ctx context.Context, key Key, content []ContentItem) error

	// PreviousRating returns the most recent rating recorded for the given
	// trend name at the given location, or ErrNotFound if it has never
	// trended there before.
	PreviousRating(ctx context.Context, name string, locationWOEID int64) (float64, error)

	// TopWithContent returns the most recent count trends for the location
	// that carry content, ordered by rating descending then observation time
	// descending.
	TopWithContent(ctx context.Context, locationWOEID int64, count int) ([]Trend, error)
}
