package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/atifgpt/chat-platform/internal/model"
)

const (
	// StreamName is the name of the notifications stream.
	StreamName = "CHAT_NOTIFICATIONS"

	// SubjectPrefix is the prefix for all notification subjects.
	SubjectPrefix = "notify"
)

// Notifier publishes chat lifecycle events to JetStream. Clients subscribe
// to their own subject to surface toasts without polling.
type Notifier struct {
	client *Client
}

// NewNotifier creates a new notifier.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// EnsureStream ensures the notifications stream exists.
func (n *Notifier) EnsureStream(ctx context.Context) error {
	js := n.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
		Description: "Chat lifecycle notifications",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for a notification event.
func EventSubject(userID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, userID, eventType)
}

// Publish publishes a notification event.
func (n *Notifier) Publish(ctx context.Context, event *model.NotificationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := EventSubject(event.UserID, event.Type)
	if _, err := n.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// IsConnected reports whether the underlying NATS connection is live.
func (n *Notifier) IsConnected() bool {
	return n.client != nil && n.client.IsConnected()
}
