package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atifgpt/chat-platform/internal/llm"
	"github.com/atifgpt/chat-platform/internal/model"
	"github.com/atifgpt/chat-platform/pkg/logger"
	"github.com/atifgpt/chat-platform/pkg/metrics"
)

// ErrChatBusy is returned when a send arrives while a completion for the
// same chat is still in flight.
var ErrChatBusy = errors.New("a completion is already in flight for this chat")

// MessageService appends messages and drives completions. It composes the
// conversation store and the completion client: the store never calls the
// LLM, and the LLM client holds no conversation state.
type MessageService struct {
	chats     *ChatService
	llmClient llm.Client
	logger    *logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{} // userID/chatID pairs with a pending completion
}

// NewMessageService creates a new message service.
func NewMessageService(chats *ChatService, llmClient llm.Client, log *logger.Logger) *MessageService {
	return &MessageService{
		chats:     chats,
		llmClient: llmClient,
		logger:    log,
		inFlight:  make(map[string]struct{}),
	}
}

// acquire marks a chat as having a pending completion. It fails fast when
// one is already pending: overlapping sends to the same chat are refused
// rather than interleaved.
func (s *MessageService) acquire(userID, chatID string) error {
	key := userID + "/" + chatID

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[key]; busy {
		return ErrChatBusy
	}
	s.inFlight[key] = struct{}{}
	return nil
}

func (s *MessageService) release(userID, chatID string) {
	s.mu.Lock()
	delete(s.inFlight, userID+"/"+chatID)
	s.mu.Unlock()
}

// Transcript returns a chat's full message sequence.
func (s *MessageService) Transcript(ctx context.Context, userID, chatID string) (*model.ListMessagesResponse, error) {
	chat, err := s.chats.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	return &model.ListMessagesResponse{
		ChatID:   chat.ID,
		Title:    chat.Title,
		Messages: chat.Messages,
	}, nil
}

// Send appends the user message, requests a completion over the updated
// transcript, and appends the assistant reply. On completion failure the
// user message stays recorded, no assistant message is appended, and the
// error is returned for the caller to surface.
func (s *MessageService) Send(ctx context.Context, userID, chatID string, req *model.SendMessageRequest) (*model.Message, *model.Message, error) {
	return s.send(ctx, userID, chatID, req, nil)
}

// SendStream behaves like Send but delivers the assistant reply
// incrementally through the callback before returning the final message.
func (s *MessageService) SendStream(ctx context.Context, userID, chatID string, req *model.SendMessageRequest, onChunk llm.StreamCallback) (*model.Message, *model.Message, error) {
	return s.send(ctx, userID, chatID, req, onChunk)
}

func (s *MessageService) send(ctx context.Context, userID, chatID string, req *model.SendMessageRequest, onChunk llm.StreamCallback) (*model.Message, *model.Message, error) {
	st := s.chats.storeFor(userID)

	if err := s.acquire(userID, chatID); err != nil {
		return nil, nil, err
	}
	defer s.release(userID, chatID)

	// Snapshot inside the guard, so the transcript cannot miss an exchange
	// from a send that finished between snapshot and acquisition.
	chat, err := st.Get(chatID)
	if err != nil {
		return nil, nil, err
	}

	userMsg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ChatID:    chatID,
		Role:      model.RoleUser,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if err := st.AppendMessage(chatID, userMsg); err != nil {
		return nil, nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()

	transcript := make([]llm.ChatMessage, 0, len(chat.Messages)+1)
	for _, msg := range chat.Messages {
		transcript = append(transcript, llm.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	transcript = append(transcript, llm.ChatMessage{
		Role:    string(userMsg.Role),
		Content: userMsg.Content,
	})

	completionReq := &llm.CompletionRequest{
		Model:    req.Model,
		Messages: transcript,
	}

	start := time.Now()
	var resp *llm.CompletionResponse
	if onChunk != nil {
		resp, err = s.llmClient.CompleteStream(ctx, completionReq, onChunk)
	} else {
		resp, err = s.llmClient.Complete(ctx, completionReq)
	}
	if err != nil {
		metrics.RecordCompletion(s.llmClient.Name(), "error", time.Since(start).Seconds(), 0, 0)
		s.chats.notify(ctx, userID, chatID, model.EventCompletionFailed, "")
		return &userMsg, nil, fmt.Errorf("completion failed: %w", err)
	}

	assistantMsg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ChatID:    chatID,
		Role:      model.RoleAssistant,
		Content:   resp.Content,
		Model:     &resp.Model,
		TokensIn:  &resp.TokensIn,
		TokensOut: &resp.TokensOut,
		LatencyMs: &resp.LatencyMs,
		CreatedAt: time.Now(),
	}
	if err := st.AppendMessage(chatID, assistantMsg); err != nil {
		// The chat was deleted while the completion was in flight. The
		// reply has nowhere to go; report it back anyway.
		return &userMsg, &assistantMsg, nil
	}

	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	metrics.RecordCompletion(s.llmClient.Name(), "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	return &userMsg, &assistantMsg, nil
}
