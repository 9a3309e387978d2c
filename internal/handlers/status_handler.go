package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	storage   interfaces.RunStorage
	ws        *WebSocketHandler
	logger    arbor.ILogger
	startedAt time.Time
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(storage interfaces.RunStorage, ws *WebSocketHandler, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		storage:   storage,
		ws:        ws,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	totalRuns, err := h.storage.CountRuns(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count runs for status")
	}

	status := map[string]interface{}{
		"status":         "ok",
		"version":        common.GetVersion(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"total_runs":     totalRuns,
		"goroutines":     common.GetGoroutineCount(),
	}
	if h.ws != nil {
		status["websocket_clients"] = h.ws.ClientCount()
	}

	WriteJSON(w, http.StatusOK, status)
}
