package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"photovault/internal/database"
	"photovault/internal/logging"
)

type addRootRequest struct {
	Path      string `json:"path"`
	Recursive *bool  `json:"recursive,omitempty"`
}

// ListRoots returns all registered scan roots.
func (h *Handlers) ListRoots(w http.ResponseWriter, r *http.Request) {
	roots, err := h.db.ListScanRoots(r.Context())
	if err != nil {
		logging.Error("failed to list scan roots: %v", err)
		writeJSONError(w, "failed to list scan roots", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string][]database.ScanRoot{"roots": roots})
}

// AddRoot registers a directory for scanning. The path must exist and
// be a directory; recursive defaults to true.
func (h *Handlers) AddRoot(w http.ResponseWriter, r *http.Request) {
	var req addRootRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}

	abs, err := filepath.Abs(req.Path)
	if err != nil {
		writeJSONError(w, "invalid path", http.StatusBadRequest)
		return
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		writeJSONError(w, "path is not an accessible directory", http.StatusBadRequest)
		return
	}

	recursive := true
	if req.Recursive != nil {
		recursive = *req.Recursive
	}

	root, err := h.db.AddScanRoot(r.Context(), abs, recursive)
	if err != nil {
		logging.Error("failed to add scan root %s: %v", abs, err)
		writeJSONError(w, "failed to add scan root", http.StatusInternalServerError)
		return
	}

	logging.Info("scan root added: %s (recursive=%v)", abs, recursive)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, root)
}

// RemoveRoot unregisters a scan root. Inventory rows under it remain
// until the next scan reconciles against the remaining roots.
func (h *Handlers) RemoveRoot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid root id", http.StatusBadRequest)
		return
	}

	if err := h.db.RemoveScanRoot(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "scan root not found", http.StatusNotFound)
			return
		}
		logging.Error("failed to remove scan root %d: %v", id, err)
		writeJSONError(w, "failed to remove scan root", http.StatusInternalServerError)
		return
	}

	logging.Info("scan root %d removed", id)
	writeJSONStatus(w, "ok")
}
