package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/atifgpt/chat-platform/internal/llm"
	"github.com/atifgpt/chat-platform/internal/middleware"
	"github.com/atifgpt/chat-platform/internal/model"
	"github.com/atifgpt/chat-platform/internal/service"
	"github.com/atifgpt/chat-platform/internal/store"
	"github.com/atifgpt/chat-platform/pkg/logger"
)

type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.reply, Model: "stub-model"}, nil
}

func (s *stubLLM) CompleteStream(ctx context.Context, req *llm.CompletionRequest, callback llm.StreamCallback) (*llm.CompletionResponse, error) {
	resp, err := s.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	words := strings.Split(resp.Content, " ")
	for i := range words {
		if err := callback(strings.Join(words[:i+1], " "), i); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (s *stubLLM) Name() string     { return "stub" }
func (s *stubLLM) Models() []string { return []string{"stub-model"} }

func newMessageRouter(client llm.Client) (*chi.Mux, *service.ChatService) {
	chatSvc := service.NewChatService(nil, store.Lenient, logger.Nop())
	msgSvc := service.NewMessageService(chatSvc, client, logger.Nop())

	chatHandler := NewChatHandler(chatSvc, logger.Nop())
	msgHandler := NewMessageHandler(msgSvc, logger.Nop())
	streamHandler := NewStreamHandler(msgSvc, logger.Nop())

	r := chi.NewRouter()
	r.Route("/api/v1/chats", func(r chi.Router) {
		r.Use(middleware.Auth(testJWTSecret))
		r.Post("/", chatHandler.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/messages", msgHandler.List)
			r.Post("/messages", msgHandler.Send)
			r.Post("/stream", streamHandler.Send)
		})
	})
	return r, chatSvc
}

func TestMessagesAPI_SendAndList(t *testing.T) {
	router, _ := newMessageRouter(&stubLLM{reply: "Hello back"})
	chat := createChat(t, router, "u1", "")

	rec := doRequest(t, router, "u1", http.MethodPost, "/api/v1/chats/"+chat.ID+"/messages",
		model.SendMessageRequest{Content: "Hello"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp model.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, model.RoleUser, resp.UserMessage.Role)
	require.Equal(t, "Hello", resp.UserMessage.Content)
	require.Equal(t, model.RoleAssistant, resp.AssistantMessage.Role)
	require.Equal(t, "Hello back", resp.AssistantMessage.Content)

	rec = doRequest(t, router, "u1", http.MethodGet, "/api/v1/chats/"+chat.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list model.ListMessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Messages, 2)
	require.Equal(t, "Hello", list.Title)
}

func TestMessagesAPI_BlankContentRejected(t *testing.T) {
	router, _ := newMessageRouter(&stubLLM{reply: "ok"})
	chat := createChat(t, router, "u1", "")

	rec := doRequest(t, router, "u1", http.MethodPost, "/api/v1/chats/"+chat.ID+"/messages",
		model.SendMessageRequest{Content: "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessagesAPI_CompletionFailure(t *testing.T) {
	router, chatSvc := newMessageRouter(&stubLLM{err: &llm.ServiceError{StatusCode: 429, Message: "quota exceeded"}})
	chat := createChat(t, router, "u1", "")

	rec := doRequest(t, router, "u1", http.MethodPost, "/api/v1/chats/"+chat.ID+"/messages",
		model.SendMessageRequest{Content: "Hello"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	// The user message survives the failed completion.
	got, err := chatSvc.Get(context.Background(), "u1", chat.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	require.Equal(t, model.RoleUser, got.Messages[0].Role)
}

func TestMessagesAPI_UnknownChat(t *testing.T) {
	router, _ := newMessageRouter(&stubLLM{reply: "ok"})

	rec := doRequest(t, router, "u1", http.MethodPost,
		"/api/v1/chats/0190f6a2-0000-7000-8000-000000000000/messages",
		model.SendMessageRequest{Content: "Hello"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamAPI_ChunkEvents(t *testing.T) {
	router, _ := newMessageRouter(&stubLLM{reply: "a b c"})
	chat := createChat(t, router, "u1", "")

	rec := doRequest(t, router, "u1", http.MethodPost, "/api/v1/chats/"+chat.ID+"/stream",
		model.SendMessageRequest{Content: "count"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	events, payloads := parseSSE(t, body)

	require.Equal(t, []string{"chunk", "chunk", "chunk", "user_message", "message_complete", "done"}, events)

	// Each chunk carries the reply accumulated so far.
	wantChunks := []string{"a", "a b", "a b c"}
	for i, want := range wantChunks {
		var chunk model.ChunkEvent
		require.NoError(t, json.Unmarshal([]byte(payloads[i]), &chunk))
		require.Equal(t, want, chunk.Text)
		require.Equal(t, i, chunk.Index)
	}

	var complete model.MessageCompleteEvent
	require.NoError(t, json.Unmarshal([]byte(payloads[4]), &complete))
	require.Equal(t, "a b c", complete.Message.Content)
}

func TestStreamAPI_ErrorEvent(t *testing.T) {
	router, _ := newMessageRouter(&stubLLM{err: &llm.ServiceError{StatusCode: 500, Message: "upstream down"}})
	chat := createChat(t, router, "u1", "")

	rec := doRequest(t, router, "u1", http.MethodPost, "/api/v1/chats/"+chat.ID+"/stream",
		model.SendMessageRequest{Content: "Hello"})

	events, payloads := parseSSE(t, rec.Body.String())
	require.Equal(t, []string{"error"}, events)

	var errEvent model.ErrorEvent
	require.NoError(t, json.Unmarshal([]byte(payloads[0]), &errEvent))
	require.Equal(t, "stream_error", errEvent.Code)
}

// parseSSE splits an SSE response body into parallel event-name and
// data-payload slices.
func parseSSE(t *testing.T, body string) ([]string, []string) {
	t.Helper()

	var events, payloads []string
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			events = append(events, strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			payloads = append(payloads, strings.TrimPrefix(line, "data: "))
		}
	}
	require.Equal(t, len(events), len(payloads))
	return events, payloads
}
