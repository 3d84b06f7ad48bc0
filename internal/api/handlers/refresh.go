package handlers

import (
	"net/http"

	"github.com/openquant/screener/internal/refresh"
	"github.com/openquant/screener/pkg/logger"
)

// RefreshHandler exposes the refresh orchestrator: trigger, status and
// reset.
type RefreshHandler struct {
	orchestrator *refresh.Orchestrator
	logger       *logger.Logger
}

func NewRefreshHandler(o *refresh.Orchestrator, log *logger.Logger) *RefreshHandler {
	return &RefreshHandler{
		orchestrator: o,
		logger:       log,
	}
}

// Trigger starts a refresh.
// POST /api/refresh
func (h *RefreshHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	accepted := h.orchestrator.Trigger()
	if !accepted {
		// Already running: not an error, just not accepted.
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"accepted": false,
			"status":   h.orchestrator.Status(),
		})
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted": true,
		"status":   h.orchestrator.Status(),
	})
}

// Status reports the current job snapshot.
// GET /api/refresh/status
func (h *RefreshHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orchestrator.Status())
}

// Reset clears a terminal job back to idle.
// POST /api/refresh/reset
func (h *RefreshHandler) Reset(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.orchestrator.Reset()
	if !ok {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"reset":  false,
			"status": snap,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reset":  true,
		"status": snap,
	})
}
