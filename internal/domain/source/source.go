package source

import (
	"context"
	"errors"

	"trendpress/internal/domain/location"
)

// ErrRateLimited signals that an upstream source refused the request because
// the rolling rate window is exhausted. It aborts the remaining batch.
var ErrRateLimited = errors.New("upstream rate limit exceeded")

// RankedTrend is a raw trend as reported by one upstream source. Rank is
// 1-indexed; lower means more prominent.
type RankedTrend struct {
	Name string
	Rank int
}

// TrendSource is an upstream provider of ranked trend names for a location.
// Implementations must surface rate limiting as ErrRateLimited (possibly
// wrapped) so the scheduler can fail fast.
type TrendSource interface {
	// Name identifies the source in logs and merge diagnostics.
	Name() string

	// Trends returns the ranked trends for the given location.
	Trends(ctx context.Context, loc location.Location) ([]RankedTrend, error)
}

// LocationSource lists the locations a provider has trend data for.
type LocationSource interface {
	// Locations returns available locations, excluding the given place-type
	// codes.
	Locations(ctx context.Context, excludeTypeCodes []int) ([]location.Location, error)
}
