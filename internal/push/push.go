// Package push defines the live-update channel boundary: a subscription that
// delivers row-insert events for one conversation plus its connection status
// transitions. The sync engine consumes this interface; the websocket client
// in realtime.go is the production implementation.
package push

import (
	"context"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
)

// Status is the connection state of a push subscription.
type Status string

const (
	StatusConnecting   Status = "CONNECTING"
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusDisconnected Status = "DISCONNECTED"
	StatusError        Status = "ERROR"
)

// Event is a single message-insert notification.
type Event struct {
	New chat.Message `json:"new"`
}

// Subscription is a live feed for one conversation. Events and Status are
// closed after Unsubscribe.
type Subscription interface {
	Events() <-chan Event
	Status() <-chan Status
	Unsubscribe()
}

// Channel opens subscriptions filtered server-side by conversation id.
type Channel interface {
	Subscribe(ctx context.Context, conversationID string) (Subscription, error)
}
