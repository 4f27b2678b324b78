// internal/server/handlers/trend.go

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trendpress/internal/domain/location"
	"trendpress/internal/domain/trend"
)

const defaultTrendCount = 10

// TrendHandler handles trend-related HTTP requests.
type TrendHandler struct {
	trends    trend.Store
	locations location.Store
}

// NewTrendHandler creates a new trend handler.
func NewTrendHandler(trends trend.Store, locations location.Store) *TrendHandler {
	return &TrendHandler{
		trends:    trends,
		locations: locations,
	}
}

// GetTrendsForLocation returns the most recent trends with content for a
// location, ordered by rating then recency. The location may be given as a
// WOEID or a display name.
func (h *TrendHandler) GetTrendsForLocation(w http.ResponseWriter, r *http.Request) {
	locParam := chi.URLParam(r, "location")
	if locParam == "" {
		respondWithError(w, http.StatusBadRequest, "Missing location", nil)
		return
	}

	count := defaultTrendCount
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		parsed, err := strconv.Atoi(countStr)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid count", err)
			return
		}
		count = parsed
	}

	woeid, err := strconv.ParseInt(locParam, 10, 64)
	if err != nil {
		loc, err := h.locations.GetByName(r.Context(), locParam)
		if err != nil {
			if errors.Is(err, location.ErrNotFound) {
				respondWithError(w, http.StatusNotFound, "Location not found", nil)
			} else {
				respondWithError(w, http.StatusInternalServerError, "Failed to resolve location", err)
			}
			return
		}
		woeid = loc.WOEID
	}

	trends, err := h.trends.TopWithContent(r.Context(), woeid, count)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get trends", err)
		return
	}

	respondWithJSON(w, http.StatusOK, trends)
}

// Helper for JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses.
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil && code >= 500 {
		slog.Error("http error", "code", code, "message", message, "error", err)
	}

	jsonResponse, _ := json.Marshal(map[string]string{"error": message})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}
