package source

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// FeedSource describes one syndication source the content aggregator crawls.
// A static source carries a set of named feed URLs; a query source carries a
// single URL template parameterized by trend name and location name.
type FeedSource struct {
	Name string `yaml:"name"`

	// Feeds maps feed names to feed URLs for static sources.
	Feeds map[string]string `yaml:"feeds,omitempty"`

	// QueryFeed names the single templated feed of a query source.
	QueryFeed string `yaml:"query_feed,omitempty"`

	// QueryURL is a template with two %s verbs: trend then location, both
	// URL-escaped at expansion time.
	QueryURL string `yaml:"query_url,omitempty"`

	// UseOpenGraph enables the og:image hint when selecting article images.
	UseOpenGraph bool `yaml:"use_open_graph"`

	// RelabelFromTitle re-derives the displayed source label from the suffix
	// of the entry title. Only meaningful for meta-aggregator query feeds.
	RelabelFromTitle bool `yaml:"relabel_from_title"`
}

// IsQuery reports whether the source is a templated query source.
func (s FeedSource) IsQuery() bool {
	return s.QueryURL != ""
}

// ExpandQuery fills the source's URL template for the given trend and
// location.
func (s FeedSource) ExpandQuery(trendName, locationName string) string {
	return fmt.Sprintf(s.QueryURL, url.QueryEscape(trendName), url.QueryEscape(locationName))
}

type feedsFile struct {
	Sources []FeedSource `yaml:"sources"`
}

// LoadFeedSources reads the feed-source registry from a YAML file.
func LoadFeedSources(path string) ([]FeedSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening feed config: %w", err)
	}
	defer f.Close()

	var cfg feedsFile
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing feed config: %w", err)
	}

	for _, s := range cfg.Sources {
		if s.Name == "" {
			return nil, fmt.Errorf("feed source with empty name")
		}
		if s.IsQuery() && s.QueryFeed == "" {
			return nil, fmt.Errorf("query source %s missing query_feed", s.Name)
		}
		if !s.IsQuery() && len(s.Feeds) == 0 {
			return nil, fmt.Errorf("source %s has no feeds", s.Name)
		}
	}

	return cfg.Sources, nil
}
