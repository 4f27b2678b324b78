package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"trendpress/internal/adapter/cache"
	"trendpress/internal/domain/location"
	"trendpress/internal/domain/source"
)

type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.values[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

type memoryRecord struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryRecord() *memoryRecord {
	return &memoryRecord{values: make(map[string]string)}
}

func (r *memoryRecord) Get(ctx context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.values[id]; ok {
		return token, nil
	}
	return "", errors.New("not found")
}

func (r *memoryRecord) Set(ctx context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[id] = token
	return nil
}

func (r *memoryRecord) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, id)
	return nil
}

// apiServer fakes the upstream: it exchanges tokens at /oauth2/token and
// checks bearer auth on the trend endpoints.
type apiServer struct {
	*httptest.Server
	mu        sync.Mutex
	token     string
	exchanges int
	handler   func(w http.ResponseWriter, r *http.Request)
}

func newAPIServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *apiServer {
	t.Helper()

	as := &apiServer{token: "token-1", handler: handler}
	as.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			as.mu.Lock()
			as.exchanges++
			token := as.token
			as.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]string{
				"token_type":   "bearer",
				"access_token": token,
			})
			return
		}

		as.mu.Lock()
		expect := "Bearer " + as.token
		as.mu.Unlock()
		if r.Header.Get("Authorization") != expect {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		as.handler(w, r)
	}))
	t.Cleanup(as.Close)
	return as
}

func (as *apiServer) rotate(token string) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.token = token
}

func (as *apiServer) exchangeCount() int {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.exchanges
}

func newTestClient(server *apiServer) *Client {
	tokens := NewTokenSource(server.URL, "key", "secret", newMemoryCache(), newMemoryRecord(), 5*time.Second)
	return NewClient(server.URL, tokens, 5*time.Second)
}

func TestLocations(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1.1/trends/available.json" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `[
			{"name":"Worldwide","woeid":1,"placeType":{"code":19,"name":"Supername"}},
			{"name":"New York","woeid":2459115,"parentid":23424977,"country":"United States","countryCode":"US","placeType":{"code":7,"name":"Town"}},
			{"name":"United States","woeid":23424977,"country":"United States","countryCode":"US","placeType":{"code":12,"name":"Country"}}
		]`)
	})

	locations, err := newTestClient(server).Locations(context.Background(), []int{7})
	if err != nil {
		t.Fatalf("locations failed: %v", err)
	}

	if len(locations) != 2 {
		t.Fatalf("expected 2 locations after exclusion, got %d", len(locations))
	}
	for _, loc := range locations {
		if loc.TypeCode == 7 {
			t.Errorf("excluded type code leaked through: %+v", loc)
		}
	}

	want := location.Location{
		WOEID: 23424977, Name: "United States", TypeName: "Country", TypeCode: 12,
		Country: "United States", CountryCode: "US",
	}
	if locations[1] != want {
		t.Errorf("expected %+v, got %+v", want, locations[1])
	}
}

func TestTrendsRanks(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"trends":[{"name":"foo"},{"name":"bar"},{"name":"baz"}]}]`)
	})

	trends, err := newTestClient(server).Trends(context.Background(), location.Location{WOEID: 1})
	if err != nil {
		t.Fatalf("trends failed: %v", err)
	}

	want := []source.RankedTrend{
		{Name: "foo", Rank: 1},
		{Name: "bar", Rank: 2},
		{Name: "baz", Rank: 3},
	}
	if len(trends) != len(want) {
		t.Fatalf("expected %d trends, got %d", len(want), len(trends))
	}
	for i := range want {
		if trends[i] != want[i] {
			t.Errorf("position %d: expected %+v, got %+v", i, want[i], trends[i])
		}
	}
}

func TestTrendsRateLimited(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := newTestClient(server).Trends(context.Background(), location.Location{WOEID: 1})
	if !errors.Is(err, source.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestTrendsAPIError(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := newTestClient(server).Trends(context.Background(), location.Location{WOEID: 1})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", apiErr.Status)
	}
}

func TestUnauthorizedTriggersOneRefresh(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"trends":[{"name":"foo"}]}]`)
	})
	client := newTestClient(server)

	// Prime the token chain, then rotate the token the upstream accepts so
	// the next call sees a 401 and must re-exchange.
	if _, err := client.Trends(context.Background(), location.Location{WOEID: 1}); err != nil {
		t.Fatalf("priming call failed: %v", err)
	}
	server.rotate("token-2")

	trends, err := client.Trends(context.Background(), location.Location{WOEID: 1})
	if err != nil {
		t.Fatalf("expected recovery after token refresh, got %v", err)
	}
	if len(trends) != 1 || trends[0].Name != "foo" {
		t.Errorf("unexpected trends after refresh: %+v", trends)
	}
	if got := server.exchangeCount(); got != 2 {
		t.Errorf("expected 2 credential exchanges, got %d", got)
	}
}

func TestTokenSourceLookupOrder(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {})

	c := newMemoryCache()
	record := newMemoryRecord()
	tokens := NewTokenSource(server.URL, "key", "secret", c, record, 5*time.Second)

	ctx := context.Background()

	// Empty chain exchanges credentials and writes through both layers.
	token, err := tokens.Token(ctx)
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}
	if token != "token-1" {
		t.Errorf("expected exchanged token, got %s", token)
	}
	if stored, _ := record.Get(ctx, "twitter_api_token"); stored != "token-1" {
		t.Errorf("exchange did not persist token, record has %q", stored)
	}

	// A durable record survives a cache flush without a new exchange.
	if err := c.Delete(ctx, "twitter_api_token"); err != nil {
		t.Fatal(err)
	}
	if token, err = tokens.Token(ctx); err != nil || token != "token-1" {
		t.Fatalf("expected stored token, got %q (%v)", token, err)
	}
	if got := server.exchangeCount(); got != 1 {
		t.Errorf("expected 1 exchange, got %d", got)
	}

	// Invalidate clears both layers; the next lookup exchanges again.
	tokens.Invalidate(ctx)
	if _, err := tokens.Token(ctx); err != nil {
		t.Fatalf("token after invalidate failed: %v", err)
	}
	if got := server.exchangeCount(); got != 2 {
		t.Errorf("expected 2 exchanges after invalidate, got %d", got)
	}
}
