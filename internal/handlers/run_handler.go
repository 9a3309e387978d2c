package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/runs"
)

// defaultListLimit bounds GET /api/runs when no limit is given.
const defaultListLimit = 50

// RunHandler handles the run lifecycle endpoints.
type RunHandler struct {
	runs   *runs.Service
	export interfaces.ExportService
	logger arbor.ILogger
}

// NewRunHandler creates a new RunHandler
func NewRunHandler(runService *runs.Service, export interfaces.ExportService, logger arbor.ILogger) *RunHandler {
	return &RunHandler{
		runs:   runService,
		export: export,
		logger: logger,
	}
}

// CreateRunHandler handles POST /api/runs. The run executes in the
// background; callers follow progress on the event stream.
func (h *RunHandler) CreateRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	run, err := h.runs.Start(r.Context(), req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, run)
}

// ListRunsHandler handles GET /api/runs
func (h *RunHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := QueryInt(r, "limit", defaultListLimit)
	list, err := h.runs.List(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  list,
		"count": len(list),
	})
}

// GetRunHandler handles GET /api/runs/{id}
func (h *RunHandler) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	run, err := h.runs.Get(r.Context(), RunIDFromPath(r.URL.Path))
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, run)
}

// CancelRunHandler handles POST /api/runs/{id}/cancel
func (h *RunHandler) CancelRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	id := RunIDFromPath(r.URL.Path)
	if err := h.runs.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, interfaces.ErrRunNotFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteSuccess(w, fmt.Sprintf("run %s cancelling", id))
}

// DeleteRunHandler handles DELETE /api/runs/{id}
func (h *RunHandler) DeleteRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	id := RunIDFromPath(r.URL.Path)
	if err := h.runs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, interfaces.ErrRunNotFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteSuccess(w, fmt.Sprintf("run %s deleted", id))
}

// GetLeadsHandler handles GET /api/runs/{id}/leads
func (h *RunHandler) GetLeadsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := RunIDFromPath(r.URL.Path)
	leads, err := h.runs.Leads(r.Context(), id)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": id,
		"leads":  leads,
		"count":  len(leads),
	})
}

// ExportRunHandler handles GET /api/runs/{id}/export?format=json|csv|md|html|pdf
func (h *RunHandler) ExportRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := RunIDFromPath(r.URL.Path)
	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	if run.Result == nil {
		WriteError(w, http.StatusConflict, fmt.Sprintf("run %s has no result yet", id))
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}

	var (
		body        []byte
		contentType string
		ext         string
	)
	switch format {
	case "json":
		body, err = h.export.RenderJSON(run.Result)
		contentType, ext = "application/json", "json"
	case "csv":
		body, err = h.export.RenderCSV(run.Result)
		contentType, ext = "text/csv", "csv"
	case "md", "markdown":
		body = []byte(h.export.RenderMarkdown(run.Result))
		contentType, ext = "text/markdown; charset=utf-8", "md"
	case "html":
		body, err = h.export.RenderHTML(run.Result)
		contentType, ext = "text/html; charset=utf-8", "html"
	case "pdf":
		body, err = h.export.RenderPDF(run.Result)
		contentType, ext = "application/pdf", "pdf"
	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render %s export: %v", format, err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"leads-%s.%s\"", id, ext))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *RunHandler) writeRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, interfaces.ErrRunNotFound) {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, err.Error())
}
