// Package service provides business logic for the chat platform.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atifgpt/chat-platform/internal/model"
	"github.com/atifgpt/chat-platform/internal/store"
	"github.com/atifgpt/chat-platform/pkg/logger"
	"github.com/atifgpt/chat-platform/pkg/metrics"
)

// Notifier publishes chat lifecycle events. A nil notifier disables
// notifications.
type Notifier interface {
	Publish(ctx context.Context, event *model.NotificationEvent) error
}

// ChatService owns one conversation store per user session and wraps its
// operations with metrics and notifications. Stores live for the process
// lifetime; nothing is persisted.
type ChatService struct {
	notifier Notifier
	logger   *logger.Logger
	policy   store.Policy

	mu     sync.Mutex
	stores map[string]*store.Store
}

// NewChatService creates a new chat service.
func NewChatService(notifier Notifier, policy store.Policy, log *logger.Logger) *ChatService {
	return &ChatService{
		notifier: notifier,
		logger:   log,
		policy:   policy,
		stores:   make(map[string]*store.Store),
	}
}

// storeFor returns the user's session store, creating it on first use.
func (s *ChatService) storeFor(userID string) *store.Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[userID]
	if !ok {
		st = store.New(store.WithPolicy(s.policy))
		s.stores[userID] = st
	}
	return st
}

func (s *ChatService) notify(ctx context.Context, userID, chatID string, eventType model.EventType, title string) {
	if s.notifier == nil {
		return
	}

	event := &model.NotificationEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		ChatID:    chatID,
		Type:      eventType,
		Title:     title,
		CreatedAt: time.Now(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish notification",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}

// Create creates a new chat and selects it.
func (s *ChatService) Create(ctx context.Context, userID, title string) *model.Chat {
	chat := s.storeFor(userID).CreateChat(title)

	metrics.RecordChatOp("create")
	s.notify(ctx, userID, chat.ID, model.EventChatCreated, chat.Title)

	return chat
}

// Get retrieves a chat by id from either collection.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	return s.storeFor(userID).Get(chatID)
}

// List retrieves visible chats filtered by archived flag and title query.
func (s *ChatService) List(ctx context.Context, userID string, archived bool, query string) []model.ChatSummary {
	return s.storeFor(userID).List(archived, query)
}

// ListHidden retrieves hidden chats filtered by title query.
func (s *ChatService) ListHidden(ctx context.Context, userID, query string) []model.ChatSummary {
	return s.storeFor(userID).ListHidden(query)
}

// Select sets the user's current chat.
func (s *ChatService) Select(ctx context.Context, userID, chatID string) error {
	return s.storeFor(userID).SelectChat(chatID)
}

// Current returns the user's currently selected chat, or nil.
func (s *ChatService) Current(ctx context.Context, userID string) *model.Chat {
	return s.storeFor(userID).Current()
}

// Rename sets a chat's title.
func (s *ChatService) Rename(ctx context.Context, userID, chatID, title string) error {
	st := s.storeFor(userID)
	if err := st.RenameChat(chatID, title); err != nil {
		return err
	}

	// Under the lenient policy an unknown id is a silent no-op; only
	// notify when the rename actually landed.
	if chat, err := st.Get(chatID); err == nil && chat.Title == title {
		metrics.RecordChatOp("rename")
		s.notify(ctx, userID, chatID, model.EventChatRenamed, title)
	}
	return nil
}

// Archive toggles a chat's archived flag.
func (s *ChatService) Archive(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := s.storeFor(userID).ArchiveChat(chatID)
	if err != nil {
		return nil, err
	}

	metrics.RecordChatOp("archive")
	if chat != nil {
		eventType := model.EventChatArchived
		if !chat.Archived {
			eventType = model.EventChatUnarchived
		}
		s.notify(ctx, userID, chatID, eventType, chat.Title)
	}
	return chat, nil
}

// Delete removes a chat permanently.
func (s *ChatService) Delete(ctx context.Context, userID, chatID string) {
	s.storeFor(userID).DeleteChat(chatID)

	metrics.RecordChatOp("delete")
	s.notify(ctx, userID, chatID, model.EventChatDeleted, "")
}

// Hide moves a chat into the password-gated hidden collection. Only a
// real transition publishes an event; hiding an unknown or already-hidden
// chat notifies nobody.
func (s *ChatService) Hide(ctx context.Context, userID, chatID, password string) error {
	hidden, err := s.storeFor(userID).HideChat(chatID, password)
	if err != nil {
		return err
	}

	if hidden {
		metrics.RecordChatOp("hide")
		s.notify(ctx, userID, chatID, model.EventChatHidden, "")
	}
	return nil
}

// Unhide restores a hidden chat when the password matches. A mismatch or
// a chat that was never hidden changes nothing and notifies nobody.
func (s *ChatService) Unhide(ctx context.Context, userID, chatID, password string) error {
	restored, err := s.storeFor(userID).UnhideChat(chatID, password)
	if err != nil {
		return err
	}

	if restored {
		metrics.RecordChatOp("unhide")
		s.notify(ctx, userID, chatID, model.EventChatUnhidden, "")
	}
	return nil
}
