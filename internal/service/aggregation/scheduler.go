// internal/service/aggregation/scheduler.go

package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"trendpress/internal/adapter/dispatch"
	"trendpress/internal/domain/location"
	"trendpress/internal/domain/source"
)

// Batch states. A batch only ever moves forward: pending, running, then
// completed or aborted.
const (
	BatchPending   = "pending"
	BatchRunning   = "running"
	BatchCompleted = "completed"
	BatchAborted   = "aborted"
)

// BatchTask is the payload dispatched for one batch of locations.
type BatchTask struct {
	BatchID   string              `json:"batch_id"`
	Locations []location.Location `json:"locations"`
}

// SchedulerConfig tunes the fan-out scheduler.
type SchedulerConfig struct {
	// BatchSize is the number of locations per batch, which is also the
	// number of upstream calls one batch commits to a rate window.
	BatchSize int

	// Window is the upstream API's rolling rate window.
	Window time.Duration

	// AggregateQueue names the queue batch tasks are dispatched on.
	AggregateQueue string

	// ExcludeTypeCodes filters coarse-grained place types out of discovery.
	ExcludeTypeCodes []int
}

// RateWindow tracks how many upstream calls have been committed to the
// schedule within each rolling window. It exists so the rate-limit decision
// is explicit scheduler state rather than an ambient flag in a shared cache.
type RateWindow struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	committed []int
}

// NewRateWindow creates a window tracker allowing limit calls per window.
func NewRateWindow(limit int, window time.Duration) *RateWindow {
	return &RateWindow{limit: limit, window: window}
}

// Commit reserves n calls in the earliest window with capacity and returns
// the delay offset of that window from now.
func (rw *RateWindow) Commit(n int) time.Duration {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	for i := 0; ; i++ {
		if i == len(rw.committed) {
			rw.committed = append(rw.committed, 0)
		}
		if rw.committed[i]+n <= rw.limit {
			rw.committed[i] += n
			return time.Duration(i) * rw.window
		}
	}
}

// Committed returns the per-window committed call counts, earliest first.
func (rw *RateWindow) Committed() []int {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	out := make([]int, len(rw.committed))
	copy(out, rw.committed)
	return out
}

// Scheduler partitions discovered locations into batches and spaces those
// batches across upstream rate windows so cumulative call volume never
// exceeds the window limit, regardless of how many workers run in parallel.
type Scheduler struct {
	locations  source.LocationSource
	dispatcher dispatch.Dispatcher
	config     SchedulerConfig

	mu     sync.RWMutex
	states map[string]string
}

// NewScheduler creates a fan-out scheduler.
func NewScheduler(locations source.LocationSource, dispatcher dispatch.Dispatcher, config SchedulerConfig) *Scheduler {
	return &Scheduler{
		locations:  locations,
		dispatcher: dispatcher,
		config:     config,
		states:     make(map[string]string),
	}
}

// Chunk partitions locations into consecutive batches of size. The last
// batch may be smaller; an empty input yields zero batches.
func Chunk(locations []location.Location, size int) [][]location.Location {
	if size <= 0 || len(locations) == 0 {
		return nil
	}

	var batches [][]location.Location
	for i := 0; i < len(locations); i += size {
		end := i + size
		if end > len(locations) {
			end = len(locations)
		}
		batches = append(batches, locations[i:end])
	}

	return batches
}

// Run discovers locations and dispatches one task per batch, delaying batch
// i by i rate windows. It returns the number of batches scheduled; on a
// dispatch failure that count covers the batches already sent.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	slog.Debug("aggregation process started")

	locations, err := s.locations.Locations(ctx, s.config.ExcludeTypeCodes)
	if err != nil {
		return 0, fmt.Errorf("error discovering locations: %w", err)
	}

	slog.Debug("fetched locations from upstream", "count", len(locations))

	window := NewRateWindow(s.config.BatchSize, s.config.Window)
	batches := Chunk(locations, s.config.BatchSize)

	for i, batch := range batches {
		task := BatchTask{
			BatchID:   uuid.New().String(),
			Locations: batch,
		}

		delay := window.Commit(len(batch))
		s.setState(task.BatchID, BatchPending)

		if err := s.dispatcher.Schedule(ctx, s.config.AggregateQueue, task, delay); err != nil {
			return i, fmt.Errorf("error scheduling batch %s (%d of %d dispatched): %w",
				task.BatchID, i, len(batches), err)
		}

		slog.Debug("scheduled batch",
			"batch", task.BatchID, "locations", len(batch), "delay", delay)
	}

	slog.Info("inserted fan-out tasks", "batches", len(batches))

	return len(batches), nil
}

// BatchState returns the recorded state for a batch ID, or the empty string
// for unknown batches.
func (s *Scheduler) BatchState(batchID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[batchID]
}

func (s *Scheduler) setState(batchID, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[batchID] = state
}

// MarkRunning records that a batch started executing.
func (s *Scheduler) MarkRunning(batchID string) { s.setState(batchID, BatchRunning) }

// MarkCompleted records that a batch processed all of its locations.
func (s *Scheduler) MarkCompleted(batchID string) { s.setState(batchID, BatchCompleted) }

// MarkAborted records that a batch stopped early on a rate-limit signal.
func (s *Scheduler) MarkAborted(batchID string) { s.setState(batchID, BatchAborted) }
