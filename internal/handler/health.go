package handler

import (
	"net/http"

	natsclient "github.com/atifgpt/chat-platform/internal/nats"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	notifier *natsclient.Notifier
}

// NewHealthHandler creates a new health handler. The notifier may be nil
// when notifications are disabled.
func NewHealthHandler(notifier *natsclient.Notifier) *HealthHandler {
	return &HealthHandler{
		notifier: notifier,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.notifier != nil && !h.notifier.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
