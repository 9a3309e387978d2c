package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
)

// defaultSearchLimit bounds lead search results when no limit is given.
const defaultSearchLimit = 20

// LeadsHandler serves cross-run lead search.
type LeadsHandler struct {
	storage interfaces.RunStorage
	logger  arbor.ILogger
}

// NewLeadsHandler creates a new LeadsHandler
func NewLeadsHandler(storage interfaces.RunStorage, logger arbor.ILogger) *LeadsHandler {
	return &LeadsHandler{
		storage: storage,
		logger:  logger,
	}
}

// SearchLeadsHandler handles GET /api/leads/search?q=...&limit=N
func (h *LeadsHandler) SearchLeadsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := QueryInt(r, "limit", defaultSearchLimit)
	records, err := h.storage.SearchLeads(r.Context(), query, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query": query,
		"leads": records,
		"count": len(records),
	})
}
