package aggregation

import (
	"context"
	"errors"
	"sync"
	"time"

	"trendpress/internal/domain/location"
	"trendpress/internal/domain/source"
	"trendpress/internal/domain/trend"
)

type scheduled struct {
	queue   string
	payload interface{}
	delay   time.Duration
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []scheduled
	err   error

	// failAfter, when positive, fails every Schedule call once that many
	// calls have succeeded.
	failAfter int
}

func (d *fakeDispatcher) Schedule(ctx context.Context, queue string, payload interface{}, delay time.Duration) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAfter > 0 && len(d.calls) >= d.failAfter {
		return errors.New("dispatch failed")
	}
	d.calls = append(d.calls, scheduled{queue: queue, payload: payload, delay: delay})
	return nil
}

func (d *fakeDispatcher) all() []scheduled {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]scheduled, len(d.calls))
	copy(out, d.calls)
	return out
}

type fakeLocationSource struct {
	locations []location.Location
	err       error
}

func (s *fakeLocationSource) Locations(ctx context.Context, excludeTypeCodes []int) ([]location.Location, error) {
	return s.locations, s.err
}

type fakeTrendSource struct {
	name   string
	ranked []source.RankedTrend
	err    error
}

func (s *fakeTrendSource) Name() string { return s.name }

func (s *fakeTrendSource) Trends(ctx context.Context, loc location.Location) ([]source.RankedTrend, error) {
	return s.ranked, s.err
}

type fakeTrendStore struct {
	mu       sync.Mutex
	saved    []trend.Trend
	appended map[trend.Key][]trend.ContentItem
	previous map[string]float64
	saveErr  error
}

func newFakeTrendStore() *fakeTrendStore {
	return &fakeTrendStore{
		appended: make(map[trend.Key][]trend.ContentItem),
		previous: make(map[string]float64),
	}
}

func (s *fakeTrendStore) SaveAll(ctx context.Context, trends []trend.Trend) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, trends...)
	return nil
}

func (s *fakeTrendStore) Get(ctx context.Context, key trend.Key) (*trend.Trend, error) {
	return nil, trend.ErrNotFound
}

func (s *fakeTrendStore) AppendContent(ctx context.Context, key trend.Key, content []trend.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended[key] = append(s.appended[key], content...)
	return nil
}

func (s *fakeTrendStore) PreviousRating(ctx context.Context, name string, locationWOEID int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rating, ok := s.previous[name]; ok {
		return rating, nil
	}
	return 0, trend.ErrNotFound
}

func (s *fakeTrendStore) TopWithContent(ctx context.Context, locationWOEID int64, count int) ([]trend.Trend, error) {
	return nil, nil
}

var errNoSuchLocation = errors.New("no such location")

type fakeLocationStore struct {
	mu    sync.Mutex
	saved []location.Location
	err   error
}

func (s *fakeLocationStore) SaveAll(ctx context.Context, locations []location.Location) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, locations...)
	return nil
}

func (s *fakeLocationStore) Get(ctx context.Context, woeid int64) (*location.Location, error) {
	return nil, errNoSuchLocation
}

func (s *fakeLocationStore) GetByName(ctx context.Context, name string) (*location.Location, error) {
	return nil, errNoSuchLocation
}

func makeLocations(n int) []location.Location {
	locations := make([]location.Location, n)
	for i := range locations {
		locations[i] = location.Location{WOEID: int64(i + 1), Name: "Place", TypeCode: 12}
	}
	return locations
}
