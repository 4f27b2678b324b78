// internal/service/aggregation/worker.go

package aggregation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"trendpress/internal/adapter/dispatch"
	"trendpress/internal/domain/location"
	"trendpress/internal/domain/source"
	"trendpress/internal/domain/trend"
)

// ContentTask is the payload dispatched for one trend's content aggregation.
type ContentTask struct {
	Key          trend.Key `json:"key"`
	LocationName string    `json:"location_name"`
}

// BatchTracker receives batch state transitions. The scheduler implements it.
type BatchTracker interface {
	MarkRunning(batchID string)
	MarkCompleted(batchID string)
	MarkAborted(batchID string)
}

// ContentAggregator is the per-trend content pipeline the worker fans out to.
type ContentAggregator interface {
	Aggregate(ctx context.Context, key trend.Key, locationName string) error
}

// WorkerConfig tunes batch execution.
type WorkerConfig struct {
	ContentQueue string
}

// Worker executes one batch of locations at a time. Locations within a batch
// run sequentially so only one upstream trend request is outstanding per
// batch; cross-batch parallelism is provided by the scheduler's delays.
type Worker struct {
	merger     *Merger
	trends     trend.Store
	locations  location.Store
	dispatcher dispatch.Dispatcher
	tracker    BatchTracker
	config     WorkerConfig
}

// NewWorker creates a batch worker.
func NewWorker(
	merger *Merger,
	trends trend.Store,
	locations location.Store,
	dispatcher dispatch.Dispatcher,
	tracker BatchTracker,
	config WorkerConfig,
) *Worker {
	return &Worker{
		merger:     merger,
		trends:     trends,
		locations:  locations,
		dispatcher: dispatcher,
		tracker:    tracker,
		config:     config,
	}
}

// HandleBatch processes a dispatched batch task. A rate-limit signal aborts
// the remaining locations in the batch; locations already processed keep
// their results and the next scheduled pipeline run picks up the rest.
func (w *Worker) HandleBatch(ctx context.Context, payload []byte) error {
	var task BatchTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("error decoding batch task: %w", err)
	}

	w.tracker.MarkRunning(task.BatchID)

	if err := w.locations.SaveAll(ctx, task.Locations); err != nil {
		// Locations are immutable upserts; a failed write is retried by the
		// next run and must not block trend collection.
		slog.Error("failed to persist locations", "batch", task.BatchID, "error", err)
	}

	for _, loc := range task.Locations {
		if err := w.processLocation(ctx, loc); err != nil {
			if errors.Is(err, source.ErrRateLimited) {
				slog.Warn("request limit window hit, aborting batch",
					"batch", task.BatchID, "location", loc.Name)
				w.tracker.MarkAborted(task.BatchID)
				return nil
			}

			slog.Error("could not fetch trends",
				"batch", task.BatchID, "location", loc.Name, "error", err)
		}
	}

	w.tracker.MarkCompleted(task.BatchID)
	return nil
}

// processLocation merges trends for one location, persists them, and fans
// out one content-aggregation task per trend.
func (w *Worker) processLocation(ctx context.Context, loc location.Location) error {
	trends, err := w.merger.Merge(ctx, loc)
	if err != nil {
		return err
	}

	if len(trends) == 0 {
		return nil
	}

	slog.Debug("persisting trends", "count", len(trends), "location", loc.Name)

	if err := w.trends.SaveAll(ctx, trends); err != nil {
		return fmt.Errorf("error persisting trends for %s: %w", loc.Name, err)
	}

	for _, t := range trends {
		task := ContentTask{Key: t.Key(), LocationName: loc.Name}
		if err := w.dispatcher.Schedule(ctx, w.config.ContentQueue, task, 0); err != nil {
			slog.Error("failed to schedule content task",
				"trend", t.Name, "location", loc.Name, "error", err)
		}
	}

	return nil
}

// ContentWorker adapts the content aggregator to dispatched tasks.
type ContentWorker struct {
	aggregator ContentAggregator
}

// NewContentWorker creates a content task handler.
func NewContentWorker(aggregator ContentAggregator) *ContentWorker {
	return &ContentWorker{aggregator: aggregator}
}

// HandleContent processes one dispatched content task. Content aggregation
// is idempotent, so redelivery of the same task is safe.
func (w *ContentWorker) HandleContent(ctx context.Context, payload []byte) error {
	var task ContentTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("error decoding content task: %w", err)
	}

	if err := w.aggregator.Aggregate(ctx, task.Key, task.LocationName); err != nil {
		return fmt.Errorf("error aggregating content for %s: %w", task.Key.Name, err)
	}

	return nil
}
