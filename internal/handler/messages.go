package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atifgpt/chat-platform/internal/middleware"
	"github.com/atifgpt/chat-platform/internal/model"
	"github.com/atifgpt/chat-platform/internal/service"
	"github.com/atifgpt/chat-platform/internal/store"
	"github.com/atifgpt/chat-platform/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	messages *service.MessageService
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(msgSvc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		messages: msgSvc,
		logger:   log,
	}
}

// List handles GET /api/v1/chats/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	chatID := chi.URLParam(r, "id")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.messages.Transcript(ctx, userID, chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Send handles POST /api/v1/chats/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	chatID := chi.URLParam(r, "id")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userMsg, assistantMsg, err := h.messages.Send(ctx, userID, chatID, &req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "chat not found")
		case errors.Is(err, service.ErrChatBusy):
			writeError(w, http.StatusConflict, err.Error())
		default:
			// The user message stays recorded; only the reply is missing.
			h.logger.WithRequest(middleware.GetCorrelationID(ctx), userID).
				Error("completion failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "failed to generate response")
		}
		return
	}

	writeJSON(w, http.StatusCreated, &model.SendMessageResponse{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	})
}
