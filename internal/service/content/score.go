// internal/service/content/score.go

package content

import (
	"regexp"
	"strings"
)

// Entry is the scored portion of a feed item.
type Entry struct {
	Title   string
	Summary string
}

// ScoreStrategy scores a feed entry against a trend name. Zero means not
// relevant; scores are otherwise unbounded.
type ScoreStrategy interface {
	Name() string
	Score(trend string, entry Entry) int
}

// WordBoundaryStrategy counts whole-word occurrences of the trend in the
// entry title and summary, case-insensitively. This is the production
// default.
type WordBoundaryStrategy struct{}

// Name returns the strategy's config name.
func (WordBoundaryStrategy) Name() string { return "word" }

// Score counts whole-word matches of trend across title and summary.
func (WordBoundaryStrategy) Score(trend string, entry Entry) int {
	if trend == "" {
		return 0
	}

	pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(trend) + `\b`)
	if err != nil {
		return 0
	}

	count := len(pattern.FindAllString(entry.Title, -1))
	count += len(pattern.FindAllString(entry.Summary, -1))
	return count
}

// SubstringStrategy counts case-insensitive substring occurrences of the
// trend, without word-boundary restriction. Kept for deployments that want
// looser matching on hashtag-like trend names.
type SubstringStrategy struct{}

// Name returns the strategy's config name.
func (SubstringStrategy) Name() string { return "substring" }

// Score counts substring occurrences of trend across title and summary.
func (SubstringStrategy) Score(trend string, entry Entry) int {
	if trend == "" {
		return 0
	}

	needle := strings.ToLower(trend)
	count := strings.Count(strings.ToLower(entry.Title), needle)
	count += strings.Count(strings.ToLower(entry.Summary), needle)
	return count
}

// StrategyFor returns the strategy registered under the given policy name,
// defaulting to word-boundary matching.
func StrategyFor(policy string) ScoreStrategy {
	if policy == "substring" {
		return SubstringStrategy{}
	}
	return WordBoundaryStrategy{}
}
