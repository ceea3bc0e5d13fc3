// Package model defines data structures for the chat platform.
package model

import (
	"time"
)

// DefaultChatTitle is the title given to a chat before its first user
// message arrives.
const DefaultChatTitle = "New Chat"

// Chat represents a conversation thread. The message sequence is
// append-only; everything else is mutated through the store.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	Archived  bool      `json:"archived"`
	Hidden    bool      `json:"hidden"`
}

// Summary returns a copy of the chat without its transcript, for list
// responses.
func (c *Chat) Summary() ChatSummary {
	return ChatSummary{
		ID:           c.ID,
		Title:        c.Title,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		Archived:     c.Archived,
		Hidden:       c.Hidden,
	}
}

// ChatSummary is a chat without its messages.
type ChatSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	Archived     bool      `json:"archived"`
	Hidden       bool      `json:"hidden"`
}

// CreateChatRequest is the request to create a new chat. Title is optional;
// an empty title gets the default and is later derived from the first user
// message.
type CreateChatRequest struct {
	Title string `json:"title,omitempty"`
}

// RenameChatRequest is the request to rename a chat.
type RenameChatRequest struct {
	Title string `json:"title"`
}

// HideChatRequest is the request to password-hide a chat.
type HideChatRequest struct {
	Password string `json:"password"`
}

// UnhideChatRequest is the request to restore a hidden chat.
type UnhideChatRequest struct {
	Password string `json:"password"`
}

// ListChatsResponse is the response for listing chats.
type ListChatsResponse struct {
	Chats []ChatSummary `json:"chats"`
	Total int           `json:"total"`
}
