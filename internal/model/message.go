package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a chat transcript. Messages are immutable
// once appended to a chat.
type Message struct {
	ID      string `json:"id"`
	ChatID  string `json:"chat_id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// LLM metadata (set on assistant messages only)
	Model     *string `json:"model,omitempty"`
	TokensIn  *int    `json:"tokens_in,omitempty"`
	TokensOut *int    `json:"tokens_out,omitempty"`
	LatencyMs *int64  `json:"latency_ms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// SendMessageResponse is the response after a completed send: the recorded
// user message plus the assistant reply.
type SendMessageResponse struct {
	UserMessage      *Message `json:"user_message"`
	AssistantMessage *Message `json:"assistant_message,omitempty"`
}

// ListMessagesResponse is the response for listing a chat's transcript.
type ListMessagesResponse struct {
	ChatID   string    `json:"chat_id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// ChunkEvent is a streaming SSE event carrying the assistant reply text
// accumulated through chunk Index.
type ChunkEvent struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// MessageCompleteEvent signals the end of a streamed assistant reply.
type MessageCompleteEvent struct {
	Message Message `json:"message"`
}

// ErrorEvent is sent on a stream when a completion fails.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
