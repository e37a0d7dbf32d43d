package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"photovault/internal/dedup"
	"photovault/internal/logging"
)

type duplicatesResponse struct {
	Groups      []dedup.Group `json:"groups"`
	WastedBytes int64         `json:"wastedBytes"`
}

// ListDuplicates returns every group of images sharing a content hash.
func (h *Handlers) ListDuplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := h.dedup.GroupDuplicates(r.Context())
	if err != nil {
		logging.Error("failed to group duplicates: %v", err)
		writeJSONError(w, "failed to group duplicates", http.StatusInternalServerError)
		return
	}

	resp := duplicatesResponse{Groups: groups}
	for _, g := range groups {
		resp.WastedBytes += g.WastedBytes
	}
	writeJSON(w, resp)
}

// DeleteDuplicateGroup removes all copies but the survivor for one hash.
func (h *Handlers) DeleteDuplicateGroup(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	if hash == "" {
		writeJSONError(w, "missing hash", http.StatusBadRequest)
		return
	}

	result, err := h.dedup.DeleteGroup(r.Context(), hash)
	if err != nil {
		logging.Error("failed to delete duplicate group %s: %v", hash, err)
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, result)
}

// CleanupDuplicates removes the non-survivor copies of every group.
func (h *Handlers) CleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	result, err := h.dedup.DeleteAllRecommended(r.Context())
	if err != nil {
		logging.Error("duplicate cleanup failed: %v", err)
		writeJSONError(w, "duplicate cleanup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}
