package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes wires every endpoint onto the router. Health and auth
// endpoints are open; everything under /api requires a session once
// setup has completed.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Health and build info
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Authentication
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/setup-required", h.CheckSetupRequired).Methods(http.MethodGet)
	auth.HandleFunc("/setup", h.Setup).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	auth.HandleFunc("/check", h.CheckAuth).Methods(http.MethodGet)

	// Protected API
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RequireAuth)

	api.HandleFunc("/auth/change-password", h.ChangePassword).Methods(http.MethodPost)

	api.HandleFunc("/scan", h.StartScan).Methods(http.MethodPost)
	api.HandleFunc("/scan", h.CancelScan).Methods(http.MethodDelete)
	api.HandleFunc("/scan/progress", h.ScanProgress).Methods(http.MethodGet)

	api.HandleFunc("/roots", h.ListRoots).Methods(http.MethodGet)
	api.HandleFunc("/roots", h.AddRoot).Methods(http.MethodPost)
	api.HandleFunc("/roots/{id:[0-9]+}", h.RemoveRoot).Methods(http.MethodDelete)

	api.HandleFunc("/images/{id:[0-9]+}", h.GetImage).Methods(http.MethodGet)
	api.HandleFunc("/images/{id:[0-9]+}/thumbnail", h.GetThumbnail).Methods(http.MethodGet)
	api.HandleFunc("/images/{id:[0-9]+}/thumbnail", h.InvalidateThumbnail).Methods(http.MethodDelete)

	api.HandleFunc("/duplicates", h.ListDuplicates).Methods(http.MethodGet)
	api.HandleFunc("/duplicates/cleanup", h.CleanupDuplicates).Methods(http.MethodPost)
	api.HandleFunc("/duplicates/{hash:[0-9a-f]+}", h.DeleteDuplicateGroup).Methods(http.MethodDelete)

	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
}
