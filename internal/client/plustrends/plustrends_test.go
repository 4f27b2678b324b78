package plustrends

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trendpress/internal/domain/location"
)

func scrapeFrom(t *testing.T, body string) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	return NewClient(server.URL, 5*time.Second)
}

func TestTrendsExtractsSlugs(t *testing.T) {
	client := scrapeFrom(t, `
		<a href="/s/eclipse/posts">Eclipse</a>
		<a href="/s/world%20cup/posts">World Cup</a>
		<a href="/s/eclipse/posts">Eclipse again</a>
		<a href="/other/link">noise</a>
	`)

	trends, err := client.Trends(context.Background(), location.Location{WOEID: 1})
	if err != nil {
		t.Fatalf("trends failed: %v", err)
	}

	if len(trends) != 2 {
		t.Fatalf("expected 2 deduplicated trends, got %d", len(trends))
	}
	if trends[0].Name != "eclipse" || trends[0].Rank != 1 {
		t.Errorf("unexpected first trend: %+v", trends[0])
	}
	if trends[1].Name != "world cup" || trends[1].Rank != 2 {
		t.Errorf("expected unescaped slug at rank 2, got %+v", trends[1])
	}
}

func TestTrendsCapped(t *testing.T) {
	body := ""
	for i := 0; i < 25; i++ {
		body += fmt.Sprintf(`<a href="/s/topic%d/posts">t</a>`, i)
	}

	trends, err := scrapeFrom(t, body).Trends(context.Background(), location.Location{})
	if err != nil {
		t.Fatalf("trends failed: %v", err)
	}
	if len(trends) != 10 {
		t.Errorf("expected scrape capped at 10 trends, got %d", len(trends))
	}
}

func TestTrendsPageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if _, err := client.Trends(context.Background(), location.Location{}); err == nil {
		t.Fatal("expected error for failed page fetch")
	}
}

func TestTrendsEmptyPage(t *testing.T) {
	trends, err := scrapeFrom(t, "<html><body>nothing here</body></html>").
		Trends(context.Background(), location.Location{})
	if err != nil {
		t.Fatalf("trends failed: %v", err)
	}
	if len(trends) != 0 {
		t.Errorf("expected no trends, got %+v", trends)
	}
}
