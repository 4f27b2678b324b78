package source

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFeedConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "feeds.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write feed config: %v", err)
	}
	return path
}

func TestLoadFeedSources(t *testing.T) {
	path := writeFeedConfig(t, `
sources:
  - name: Google News
    query_feed: Search
    query_url: "https://news.example.com/rss/search?q=%s+%s"
    use_open_graph: true
    relabel_from_title: true
  - name: CNN
    feeds:
      Top Stories: "http://rss.cnn.com/rss/cnn_topstories.rss"
      World: "http://rss.cnn.com/rss/cnn_world.rss"
    use_open_graph: true
`)

	sources, err := LoadFeedSources(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}

	query := sources[0]
	if !query.IsQuery() {
		t.Error("expected query source")
	}
	if !query.RelabelFromTitle || !query.UseOpenGraph {
		t.Errorf("query source flags not parsed: %+v", query)
	}

	static := sources[1]
	if static.IsQuery() {
		t.Error("expected static source")
	}
	if len(static.Feeds) != 2 || static.Feeds["World"] == "" {
		t.Errorf("static feeds not parsed: %+v", static.Feeds)
	}
}

func TestLoadFeedSourcesValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing name", "sources:\n  - feeds:\n      A: \"http://example.com\"\n"},
		{"query without feed name", "sources:\n  - name: X\n    query_url: \"http://example.com?q=%s+%s\"\n"},
		{"static without feeds", "sources:\n  - name: X\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFeedSources(writeFeedConfig(t, tc.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestExpandQuery(t *testing.T) {
	src := FeedSource{
		Name:      "Google News",
		QueryFeed: "Search",
		QueryURL:  "https://news.example.com/rss/search?q=%s+%s",
	}

	got := src.ExpandQuery("World Cup", "New York")
	want := "https://news.example.com/rss/search?q=World+Cup+New+York"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
