package handlers

import (
	"net/http"
	"runtime"
	"time"

	"photovault/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusScanning = "scanning"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Scanning  bool   `json:"scanning"`
	LastScan  string `json:"lastScan,omitempty"`
	ScanError string `json:"scanError,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Stats summary
	ActiveImages  int `json:"activeImages,omitempty"`
	MissingImages int `json:"missingImages,omitempty"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	progress := h.orch.Progress()
	stats := h.db.GetStats()

	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Scanning:     progress.Running,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if progress.Running {
		response.Status = statusScanning
	}
	if progress.Error != "" {
		response.ScanError = progress.Error
		response.Status = statusDegraded
	}
	if progress.FinishedAt != nil {
		response.LastScan = progress.FinishedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	if stats.ActiveImages > 0 || stats.MissingImages > 0 {
		response.ActiveImages = stats.ActiveImages
		response.MissingImages = stats.MissingImages
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 once the database answers queries.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := h.db.ListScanRoots(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}
