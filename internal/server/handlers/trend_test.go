package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"trendpress/internal/domain/location"
	"trendpress/internal/domain/trend"
)

type stubTrendStore struct {
	gotWOEID int64
	gotCount int
	trends   []trend.Trend
}

func (s *stubTrendStore) SaveAll(ctx context.Context, trends []trend.Trend) error { return nil }

func (s *stubTrendStore) Get(ctx context.Context, key trend.Key) (*trend.Trend, error) {
	return nil, trend.ErrNotFound
}

func (s *stubTrendStore) AppendContent(ctx context.Context, key trend.Key, content []trend.ContentItem) error {
	return nil
}

func (s *stubTrendStore) PreviousRating(ctx context.Context, name string, locationWOEID int64) (float64, error) {
	return 0, trend.ErrNotFound
}

func (s *stubTrendStore) TopWithContent(ctx context.Context, locationWOEID int64, count int) ([]trend.Trend, error) {
	s.gotWOEID = locationWOEID
	s.gotCount = count
	return s.trends, nil
}

type stubLocationStore struct {
	byName map[string]location.Location
}

func (s *stubLocationStore) SaveAll(ctx context.Context, locations []location.Location) error {
	return nil
}

func (s *stubLocationStore) Get(ctx context.Context, woeid int64) (*location.Location, error) {
	return nil, location.ErrNotFound
}

func (s *stubLocationStore) GetByName(ctx context.Context, name string) (*location.Location, error) {
	if loc, ok := s.byName[name]; ok {
		return &loc, nil
	}
	return nil, location.ErrNotFound
}

func serveTrends(t *testing.T, trends trend.Store, locations location.Store, target string) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Get("/trends/{location}", NewTrendHandler(trends, locations).GetTrendsForLocation)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

func TestGetTrendsForLocationByWOEID(t *testing.T) {
	trends := &stubTrendStore{trends: []trend.Trend{{
		Name:          "Eclipse",
		LocationWOEID: 2459115,
		ObservedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Rating:        88,
		HasContent:    true,
	}}}

	recorder := serveTrends(t, trends, &stubLocationStore{}, "/trends/2459115")

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if trends.gotWOEID != 2459115 {
		t.Errorf("expected WOEID 2459115, got %d", trends.gotWOEID)
	}
	if trends.gotCount != 10 {
		t.Errorf("expected default count 10, got %d", trends.gotCount)
	}

	var payload []trend.Trend
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(payload) != 1 || payload[0].Name != "Eclipse" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestGetTrendsForLocationByName(t *testing.T) {
	trends := &stubTrendStore{}
	locations := &stubLocationStore{byName: map[string]location.Location{
		"London": {WOEID: 44418, Name: "London"},
	}}

	recorder := serveTrends(t, trends, locations, "/trends/London?count=3")

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if trends.gotWOEID != 44418 {
		t.Errorf("expected name resolved to WOEID 44418, got %d", trends.gotWOEID)
	}
	if trends.gotCount != 3 {
		t.Errorf("expected count 3, got %d", trends.gotCount)
	}
}

func TestGetTrendsForLocationUnknownName(t *testing.T) {
	recorder := serveTrends(t, &stubTrendStore{}, &stubLocationStore{}, "/trends/Atlantis")

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestGetTrendsForLocationBadCount(t *testing.T) {
	for _, count := range []string{"abc", "0", "-2"} {
		recorder := serveTrends(t, &stubTrendStore{}, &stubLocationStore{}, "/trends/1?count="+count)
		if recorder.Code != http.StatusBadRequest {
			t.Errorf("count=%s: expected 400, got %d", count, recorder.Code)
		}
	}
}
