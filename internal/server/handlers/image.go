// internal/server/handlers/image.go

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ImageReader serves stored article images by content hash.
type ImageReader interface {
	Get(ctx context.Context, hash string) ([]byte, string, error)
}

// ImageHandler serves copied article images.
type ImageHandler struct {
	images ImageReader
}

// NewImageHandler creates a new image handler.
func NewImageHandler(images ImageReader) *ImageHandler {
	return &ImageHandler{images: images}
}

// GetImage writes the stored image bytes for the hash in the path.
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if hash == "" {
		respondWithError(w, http.StatusBadRequest, "Missing image hash", nil)
		return
	}

	data, contentType, err := h.images.Get(r.Context(), hash)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Image not found", nil)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}
