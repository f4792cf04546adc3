package handler

import (
	"net/http"

	"github.com/skyquery/skyquery/internal/domain"
)

// StatusProvider reports the update pipeline's current cycle state.
type StatusProvider interface {
	Status() domain.CycleStatus
}

// StatusHandler serves the pipeline status endpoint.
type StatusHandler struct {
	provider StatusProvider
}

// NewStatusHandler creates a StatusHandler over the given provider.
func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

// GetStatus reports whether a cycle is in flight, the committed cycle count,
// and the feed epoch of the last commit.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.Status())
}
