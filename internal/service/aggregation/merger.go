// internal/service/aggregation/merger.go

package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"trendpress/internal/domain/location"
	"trendpress/internal/domain/source"
	"trendpress/internal/domain/trend"
)

// History policies for combining a trend's fresh rank score with its most
// recent persisted rating.
const (
	// HistoryFresh ignores persisted history; the rating is a pure function
	// of the current observation.
	HistoryFresh = "fresh"

	// HistoryBlend averages the fresh rank score with the previous rating
	// when one exists.
	HistoryBlend = "blend"
)

// RatingHistory exposes the persisted rating lookup the merger consults.
type RatingHistory interface {
	PreviousRating(ctx context.Context, name string, locationWOEID int64) (float64, error)
}

// MergerConfig tunes trend merging.
type MergerConfig struct {
	HistoryPolicy   string
	FilterStopWords bool
}

// Merger combines raw ranked trend lists from multiple upstream sources into
// a deduplicated, scored set of trends for one location.
type Merger struct {
	sources []source.TrendSource
	history RatingHistory
	config  MergerConfig
}

// NewMerger creates a merger over the given sources.
func NewMerger(sources []source.TrendSource, history RatingHistory, config MergerConfig) *Merger {
	return &Merger{
		sources: sources,
		history: history,
		config:  config,
	}
}

// Merge fetches trends from every source and reduces them to one entry per
// distinct name, scored by the mean of per-source ranks and blended with
// persisted history per the configured policy. The result is ordered by
// combined score descending; ties go to the name present in more sources,
// then to lexicographic order. A rate-limit signal from any source aborts
// the merge; other per-source failures skip that source.
func (m *Merger) Merge(ctx context.Context, loc location.Location) ([]trend.Trend, error) {
	type tally struct {
		rankSum int
		sources int
	}

	tallies := make(map[string]*tally)
	succeeded := 0

	for _, src := range m.sources {
		ranked, err := src.Trends(ctx, loc)
		if err != nil {
			if errors.Is(err, source.ErrRateLimited) {
				return nil, err
			}

			slog.Error("trend source failed",
				"source", src.Name(), "location", loc.Name, "error", err)
			continue
		}
		succeeded++

		for _, rt := range ranked {
			if m.config.FilterStopWords && isStopWord(rt.Name) {
				continue
			}

			t, ok := tallies[rt.Name]
			if !ok {
				t = &tally{}
				tallies[rt.Name] = t
			}
			t.rankSum += rt.Rank
			t.sources++
		}
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("no trend source available for %s", loc.Name)
	}

	observed := time.Now().UTC()
	merged := make([]trend.Trend, 0, len(tallies))
	diversity := make(map[string]int, len(tallies))

	for name, t := range tallies {
		score := float64(t.rankSum) / float64(t.sources)
		score = m.applyHistory(ctx, name, loc.WOEID, score)

		diversity[name] = t.sources
		merged = append(merged, trend.Trend{
			Name:          name,
			LocationWOEID: loc.WOEID,
			ObservedAt:    observed,
			Rating:        score,
		})
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if diversity[a.Name] != diversity[b.Name] {
			return diversity[a.Name] > diversity[b.Name]
		}
		return a.Name < b.Name
	})

	return merged, nil
}

// applyHistory folds the previous persisted rating into the fresh rank score
// according to the configured policy.
func (m *Merger) applyHistory(ctx context.Context, name string, woeid int64, fresh float64) float64 {
	if m.config.HistoryPolicy != HistoryBlend {
		return fresh
	}

	previous, err := m.history.PreviousRating(ctx, name, woeid)
	if err != nil {
		if !errors.Is(err, trend.ErrNotFound) {
			slog.Warn("previous rating lookup failed", "trend", name, "error", err)
		}
		return fresh
	}

	return (fresh + previous) / 2
}
