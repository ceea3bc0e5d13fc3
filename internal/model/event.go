package model

import (
	"time"
)

// EventType identifies a chat lifecycle notification.
type EventType string

const (
	EventChatCreated      EventType = "chat_created"
	EventChatRenamed      EventType = "chat_renamed"
	EventChatArchived     EventType = "chat_archived"
	EventChatUnarchived   EventType = "chat_unarchived"
	EventChatHidden       EventType = "chat_hidden"
	EventChatUnhidden     EventType = "chat_unhidden"
	EventChatDeleted      EventType = "chat_deleted"
	EventCompletionFailed EventType = "completion_failed"
)

// NotificationEvent is published when a chat changes state, so connected
// clients can surface the change without polling.
type NotificationEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	Type      EventType `json:"type"`
	Title     string    `json:"title,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
