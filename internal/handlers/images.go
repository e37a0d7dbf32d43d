package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"photovault/internal/database"
	"photovault/internal/logging"
	"photovault/internal/thumbs"
)

func imageIDFromRequest(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

type imageResponse struct {
	Image    *database.Image         `json:"image"`
	Metadata *database.ImageMetadata `json:"metadata,omitempty"`
	Analysis *database.ImageAnalysis `json:"analysis,omitempty"`
}

// GetImage returns one inventory row with its metadata and analysis,
// when those exist.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := imageIDFromRequest(r)
	if err != nil {
		writeJSONError(w, "invalid image id", http.StatusBadRequest)
		return
	}

	img, err := h.db.GetImage(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "image not found", http.StatusNotFound)
			return
		}
		logging.Error("failed to load image %d: %v", id, err)
		writeJSONError(w, "failed to load image", http.StatusInternalServerError)
		return
	}

	resp := imageResponse{Image: img}
	if meta, err := h.db.GetImageMetadata(r.Context(), id); err == nil {
		resp.Metadata = meta
	} else if !errors.Is(err, database.ErrNotFound) {
		logging.Warn("failed to load metadata for image %d: %v", id, err)
	}
	if analysis, err := h.db.GetImageAnalysis(r.Context(), id); err == nil {
		resp.Analysis = analysis
	} else if !errors.Is(err, database.ErrNotFound) {
		logging.Warn("failed to load analysis for image %d: %v", id, err)
	}
	writeJSON(w, resp)
}

// GetThumbnail serves a cached JPEG thumbnail, generating it on demand.
// The size query parameter bounds the longest edge.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := imageIDFromRequest(r)
	if err != nil {
		writeJSONError(w, "invalid image id", http.StatusBadRequest)
		return
	}

	maxDim := thumbs.DefaultMaxDimension
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeJSONError(w, "invalid size", http.StatusBadRequest)
			return
		}
		if n > thumbs.MaxDimensionLimit {
			n = thumbs.MaxDimensionLimit
		}
		maxDim = n
	}

	img, err := h.db.GetImage(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "image not found", http.StatusNotFound)
			return
		}
		logging.Error("failed to load image %d: %v", id, err)
		writeJSONError(w, "failed to load image", http.StatusInternalServerError)
		return
	}

	data, err := h.thumbs.Get(r.Context(), img, maxDim)
	if err != nil {
		logging.Error("failed to build thumbnail for image %d: %v", id, err)
		writeJSONError(w, "failed to build thumbnail", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		logging.Debug("thumbnail write aborted for image %d: %v", id, err)
	}
}

// InvalidateThumbnail drops every cached rendition for one image.
func (h *Handlers) InvalidateThumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := imageIDFromRequest(r)
	if err != nil {
		writeJSONError(w, "invalid image id", http.StatusBadRequest)
		return
	}

	removed := h.thumbs.Invalidate(id)
	writeJSON(w, map[string]int{"removed": removed})
}
