// internal/server/handlers/aggregate.go

package handlers

import (
	"log/slog"
	"net/http"

	"trendpress/internal/adapter/dispatch"
)

// KickoffQueue names the queue the aggregation kickoff task runs on.
const KickoffQueue = "aggregate-kickoff"

// AggregateHandler triggers the trend aggregation pipeline. It is intended
// to be called by a cron scheduler.
type AggregateHandler struct {
	dispatcher dispatch.Dispatcher
}

// NewAggregateHandler creates a new aggregate handler.
func NewAggregateHandler(dispatcher dispatch.Dispatcher) *AggregateHandler {
	return &AggregateHandler{dispatcher: dispatcher}
}

// Kickoff inserts the task that starts the aggregation process and returns
// immediately.
func (h *AggregateHandler) Kickoff(w http.ResponseWriter, r *http.Request) {
	if err := h.dispatcher.Schedule(r.Context(), KickoffQueue, struct{}{}, 0); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to schedule aggregation", err)
		return
	}

	slog.Debug("inserted aggregation kickoff task")
	w.WriteHeader(http.StatusAccepted)
}
