package handlers

import (
	"context"
	"errors"
	"net/http"

	"photovault/internal/logging"
	"photovault/internal/scan"
)

// StartScan kicks off a full pipeline run. A run already in flight
// yields 409 with the current progress so the caller can attach to it.
func (h *Handlers) StartScan(w http.ResponseWriter, r *http.Request) {
	// The run must outlive this request.
	sess, err := h.orch.Start(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, scan.ErrScanInProgress) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			writeJSON(w, h.orch.Progress())
			return
		}
		logging.Error("failed to start scan: %v", err)
		writeJSONError(w, "failed to start scan", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]int64{"sessionId": sess.ID})
}

// CancelScan requests cancellation of the running scan, if any.
func (h *Handlers) CancelScan(w http.ResponseWriter, r *http.Request) {
	if !h.orch.Cancel() {
		writeJSONError(w, "no scan in progress", http.StatusNotFound)
		return
	}
	writeJSONStatus(w, "cancelling")
}

// ScanProgress returns the latest pipeline snapshot.
func (h *Handlers) ScanProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.orch.Progress())
}
