package handlers

import (
	"net/http"

	"photovault/internal/database"
	"photovault/internal/logging"
)

type statsResponse struct {
	Library    *database.LibraryStats `json:"library"`
	Categories map[string]int         `json:"categories"`
	Cache      cacheStats             `json:"cache"`
	LastScan   string                 `json:"lastScan,omitempty"`
}

type cacheStats struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// GetStats returns aggregate library, classification, and cache stats.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	lib, err := h.db.CalculateStats(r.Context())
	if err != nil {
		logging.Error("failed to calculate stats: %v", err)
		writeJSONError(w, "failed to calculate stats", http.StatusInternalServerError)
		return
	}

	categories, err := h.db.CategoryCounts(r.Context())
	if err != nil {
		logging.Warn("failed to load category counts: %v", err)
		categories = map[string]int{}
	}

	entries, bytes := h.thumbs.CacheStats()
	resp := statsResponse{
		Library:    lib,
		Categories: categories,
		Cache:      cacheStats{Entries: entries, Bytes: bytes},
	}
	if last, err := h.db.GetLastScanTime(r.Context()); err == nil && !last.IsZero() {
		resp.LastScan = last.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	writeJSON(w, resp)
}
