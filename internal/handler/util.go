package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atifgpt/chat-platform/internal/llm"
	"github.com/atifgpt/chat-platform/internal/service"
	"github.com/atifgpt/chat-platform/internal/store"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeStoreError maps store and service errors onto HTTP statuses.
// Validation failures are client errors; the strict-policy sentinels get
// their own statuses; a completion failure is an upstream error.
func writeStoreError(w http.ResponseWriter, err error) {
	var svcErr *llm.ServiceError

	switch {
	case errors.Is(err, store.ErrEmptyTitle), errors.Is(err, store.ErrEmptyPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrNotVisible):
		writeError(w, http.StatusNotFound, "chat not found")
	case errors.Is(err, store.ErrPasswordMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrChatBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &svcErr):
		writeError(w, http.StatusBadGateway, svcErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
