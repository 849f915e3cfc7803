// Package chat holds the shared data model for guest conversations:
// messages, conversations and property facts used to ground AI replies.
package chat

import "time"

// Direction classifies who produced a message.
type Direction string

const (
	// DirectionInbound marks guest-originated messages.
	DirectionInbound Direction = "inbound"
	// DirectionOutbound marks host- or AI-originated messages.
	DirectionOutbound Direction = "outbound"
	// DirectionSystem marks machine-generated messages (e.g. template receipts).
	DirectionSystem Direction = "system"
)

// Message is a single conversation turn. Messages are immutable after
// creation except for the Read flag.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Direction      Direction `json:"direction"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
}

// Inbound reports whether the message came from the guest.
func (m Message) Inbound() bool {
	return m.Direction == DirectionInbound
}

// Conversation is the remote store's view of a guest thread. The core only
// reads it; conversation rows are never mutated here.
type Conversation struct {
	ID            string    `json:"id"`
	GuestName     string    `json:"guest_name"`
	GuestPhone    string    `json:"guest_phone"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
	PropertyID    string    `json:"property_id"`
}
