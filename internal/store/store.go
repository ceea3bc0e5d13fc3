// Package store implements the in-memory conversation store: the chat
// list, the password-hidden chat list, and the transcript of each chat.
//
// A store holds one user's session state. It is the single source of truth
// for chat existence; whether archived chats are shown is a view decision,
// so archiving only flips a flag and never moves a chat between
// collections. Hiding does move the chat, into a separate hidden
// collection gated by a plaintext password. That gate is a soft visibility
// toggle, not a security boundary.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atifgpt/chat-platform/internal/model"
)

// Policy controls how the store reports operations that reference unknown
// chat ids or carry a wrong unhide password.
type Policy int

const (
	// Lenient treats unknown ids and password mismatches as silent no-ops.
	// This mirrors the behavior the UI expects: stale references simply do
	// nothing.
	Lenient Policy = iota

	// Strict surfaces ErrNotFound and ErrPasswordMismatch instead.
	Strict
)

// titleMaxRunes is the derived-title truncation point. A first user message
// longer than this becomes the first titleMaxRunes runes plus an ellipsis.
const titleMaxRunes = 30

// Store owns a user's chats. All methods are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	visible   []*model.Chat // most recent first
	hidden    map[string]*model.Chat
	passwords map[string]string // hidden chat id -> password set at hide time
	current   string
	policy    Policy
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy sets the not-found / mismatch reporting policy.
func WithPolicy(p Policy) Option {
	return func(s *Store) { s.policy = p }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		hidden:    make(map[string]*model.Chat),
		passwords: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChat allocates a new empty chat, inserts it at the front of the
// visible collection and selects it. An empty title gets the default.
func (s *Store) CreateChat(title string) *model.Chat {
	if strings.TrimSpace(title) == "" {
		title = model.DefaultChatTitle
	}

	chat := &model.Chat{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Title:     title,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.visible = append([]*model.Chat{chat}, s.visible...)
	s.current = chat.ID
	s.mu.Unlock()

	return cloneChat(chat)
}

// SelectChat sets the current chat pointer. Unknown ids resolve per the
// store policy; under Lenient the selection is left unchanged.
func (s *Store) SelectChat(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findAny(chatID) == nil {
		return s.notFound()
	}
	s.current = chatID
	return nil
}

// Current returns the currently selected chat, or nil if none is selected.
func (s *Store) Current() *model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == "" {
		return nil
	}
	return cloneChat(s.findAny(s.current))
}

// Get returns a chat by id from either collection.
func (s *Store) Get(chatID string) (*model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat := s.findAny(chatID)
	if chat == nil {
		return nil, ErrNotFound
	}
	return cloneChat(chat), nil
}

// DeleteChat removes a chat from whichever collection holds it, along with
// any recorded password, and clears the selection if it pointed there.
// Deleting an unknown id is a no-op regardless of policy.
func (s *Store) DeleteChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeVisible(chatID)
	delete(s.hidden, chatID)
	delete(s.passwords, chatID)
	if s.current == chatID {
		s.current = ""
	}
}

// ArchiveChat toggles the archived flag on a visible chat. Hidden chats
// cannot be archived.
func (s *Store) ArchiveChat(chatID string) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findVisible(chatID)
	if chat == nil {
		return nil, s.notFound()
	}
	chat.Archived = !chat.Archived
	return cloneChat(chat), nil
}

// RenameChat sets the title on a chat in either collection. The new title
// must be non-empty after trimming; a validation failure changes nothing.
func (s *Store) RenameChat(chatID, title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findAny(chatID)
	if chat == nil {
		return s.notFound()
	}
	chat.Title = title
	return nil
}

// HideChat moves a visible chat into the hidden collection and records the
// password for later unhiding. The password must be non-empty after
// trimming. Hiding the selected chat clears the selection. The returned
// bool reports whether the chat actually moved: hiding an unknown or
// already-hidden chat returns false.
func (s *Store) HideChat(chatID, password string) (bool, error) {
	if strings.TrimSpace(password) == "" {
		return false, ErrEmptyPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findVisible(chatID)
	if chat == nil {
		if s.policy == Strict {
			return false, ErrNotVisible
		}
		return false, nil
	}

	s.removeVisible(chatID)
	chat.Hidden = true
	s.hidden[chatID] = chat
	s.passwords[chatID] = password
	if s.current == chatID {
		s.current = ""
	}
	return true, nil
}

// UnhideChat restores a hidden chat to the front of the visible collection
// when the password exactly matches the one recorded at hide time. The
// comparison is case-sensitive string equality. On success the password
// entry is removed; on mismatch nothing changes. The returned bool reports
// whether the chat actually moved: a mismatch, an unknown id, or a chat
// that is not hidden returns false.
func (s *Store) UnhideChat(chatID, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.hidden[chatID]
	if !ok {
		return false, s.notFound()
	}
	if s.passwords[chatID] != password {
		if s.policy == Strict {
			return false, ErrPasswordMismatch
		}
		return false, nil
	}

	delete(s.hidden, chatID)
	delete(s.passwords, chatID)
	chat.Hidden = false
	s.visible = append([]*model.Chat{chat}, s.visible...)
	return true, nil
}

// AppendMessage appends a message to a chat in either collection. If this
// is the chat's first message and it comes from the user, the chat title is
// derived from its content. Unknown ids resolve per the store policy.
func (s *Store) AppendMessage(chatID string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findAny(chatID)
	if chat == nil {
		return s.notFound()
	}

	if len(chat.Messages) == 0 && msg.Role == model.RoleUser {
		chat.Title = deriveTitle(msg.Content)
	}
	chat.Messages = append(chat.Messages, msg)
	return nil
}

// List returns visible chats matching the archived flag, most recent
// first. A non-empty query additionally filters by case-insensitive title
// substring.
func (s *Store) List(archived bool, query string) []model.ChatSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ChatSummary, 0, len(s.visible))
	for _, chat := range s.visible {
		if chat.Archived != archived {
			continue
		}
		if !matchesQuery(chat.Title, query) {
			continue
		}
		out = append(out, chat.Summary())
	}
	return out
}

// ListHidden returns hidden chats, optionally filtered by title substring.
// Hidden chats carry no ordering guarantee.
func (s *Store) ListHidden(query string) []model.ChatSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ChatSummary, 0, len(s.hidden))
	for _, chat := range s.hidden {
		if !matchesQuery(chat.Title, query) {
			continue
		}
		out = append(out, chat.Summary())
	}
	return out
}

func (s *Store) notFound() error {
	if s.policy == Strict {
		return ErrNotFound
	}
	return nil
}

// findVisible returns the visible chat with the given id, or nil.
// Callers must hold the lock.
func (s *Store) findVisible(chatID string) *model.Chat {
	for _, chat := range s.visible {
		if chat.ID == chatID {
			return chat
		}
	}
	return nil
}

// findAny returns the chat with the given id from either collection, or
// nil. Callers must hold the lock.
func (s *Store) findAny(chatID string) *model.Chat {
	if chat := s.findVisible(chatID); chat != nil {
		return chat
	}
	return s.hidden[chatID]
}

// removeVisible drops the chat with the given id from the visible slice.
// Callers must hold the lock.
func (s *Store) removeVisible(chatID string) {
	for i, chat := range s.visible {
		if chat.ID == chatID {
			s.visible = append(s.visible[:i], s.visible[i+1:]...)
			return
		}
	}
}

// deriveTitle builds a chat title from the first user message, truncated
// to titleMaxRunes runes with an ellipsis marker when longer.
func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleMaxRunes {
		return content
	}
	return string(runes[:titleMaxRunes]) + "..."
}

func matchesQuery(title, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(query))
}

// cloneChat returns a snapshot of a chat that the caller may hold outside
// the store lock.
func cloneChat(chat *model.Chat) *model.Chat {
	if chat == nil {
		return nil
	}
	cp := *chat
	cp.Messages = make([]model.Message, len(chat.Messages))
	copy(cp.Messages, chat.Messages)
	return &cp
}
