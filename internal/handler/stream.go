package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atifgpt/chat-platform/internal/middleware"
	"github.com/atifgpt/chat-platform/internal/model"
	"github.com/atifgpt/chat-platform/internal/service"
	"github.com/atifgpt/chat-platform/internal/store"
	"github.com/atifgpt/chat-platform/pkg/logger"
	"github.com/atifgpt/chat-platform/pkg/metrics"
)

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	messages *service.MessageService
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(msgSvc *service.MessageService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		messages: msgSvc,
		logger:   log,
	}
}

// Send handles POST /api/v1/chats/{id}/stream. It accepts a message and
// streams the assistant reply as SSE "chunk" events, each carrying the
// reply accumulated so far, followed by "message_complete" and "done".
func (h *StreamHandler) Send(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	userMsg, assistantMsg, err := h.messages.SendStream(ctx, userID, chatID, &req,
		func(partial string, index int) error {
			// A disconnected client only stops delivery; the completion
			// itself already finished before the first chunk.
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			return sendSSEEvent(w, flusher, "chunk", &model.ChunkEvent{
				Text:  partial,
				Index: index,
			})
		},
	)

	if err != nil {
		h.logger.WithRequest(middleware.GetCorrelationID(ctx), userID).
			Error("stream failed", zap.Error(err))

		code := "stream_error"
		if errors.Is(err, store.ErrNotFound) {
			code = "not_found"
		} else if errors.Is(err, service.ErrChatBusy) {
			code = "chat_busy"
		}
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    code,
			Message: err.Error(),
		})
		return
	}

	sendSSEEvent(w, flusher, "user_message", userMsg)

	if assistantMsg != nil {
		sendSSEEvent(w, flusher, "message_complete", &model.MessageCompleteEvent{
			Message: *assistantMsg,
		})
	}

	sendSSEEvent(w, flusher, "done", map[string]bool{"success": true})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
