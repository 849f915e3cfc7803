// Package store implements the remote durable store client: messages,
// conversations, properties and the WhatsApp provider configuration.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// PgxPool is the subset of pgxpool.Pool the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads conversation data from Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// FetchMessages returns every message of a conversation ordered ascending by
// creation time. Postgres reads are always fresh; forceFresh only matters to
// caching decorators (see CachedFetcher).
func (s *Store) FetchMessages(ctx context.Context, conversationID string, forceFresh bool) ([]chat.Message, error) {
	query := `
		SELECT id, conversation_id, direction, content, created_at, read
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("store: fetch messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Direction, &msg.Content, &msg.CreatedAt, &msg.Read); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// InsertMessage persists a new message row.
func (s *Store) InsertMessage(ctx context.Context, msg chat.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, direction, content, created_at, read)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, msg.ID, msg.ConversationID, msg.Direction, msg.Content, msg.CreatedAt, msg.Read); err != nil {
		return fmt.Errorf("store: insert message: %w", err)
	}
	return nil
}

// FetchProperty loads one property with its fact maps normalized.
func (s *Store) FetchProperty(ctx context.Context, id string) (*chat.Property, error) {
	query := `
		SELECT id, name, description, language, amenities, rules, faq, ai_instructions
		FROM properties
		WHERE id = $1
	`
	var (
		prop                  chat.Property
		amenities, rules, faq []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&prop.ID, &prop.Name, &prop.Description, &prop.Language,
		&amenities, &rules, &faq, &prop.AIInstructions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: fetch property: %w", err)
	}
	prop.Amenities = chat.DecodeFactMap(amenities)
	prop.Rules = chat.DecodeFactMap(rules)
	prop.FAQ = chat.DecodeFactMap(faq)
	return &prop, nil
}

// FetchConversation loads a conversation row for notification/scoping use.
func (s *Store) FetchConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	query := `
		SELECT id, guest_name, guest_phone, last_message, last_message_at, unread_count, property_id
		FROM conversations
		WHERE id = $1
	`
	var conv chat.Conversation
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&conv.ID, &conv.GuestName, &conv.GuestPhone, &conv.LastMessage,
		&conv.LastMessageAt, &conv.UnreadCount, &conv.PropertyID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: fetch conversation: %w", err)
	}
	return &conv, nil
}

// WhatsAppConfig holds the messaging-provider credentials for template sends.
type WhatsAppConfig struct {
	Token         string
	PhoneNumberID string
}

// LatestWhatsAppConfig returns the most recently created credentials row.
func (s *Store) LatestWhatsAppConfig(ctx context.Context) (*WhatsAppConfig, error) {
	query := `
		SELECT token, phone_number_id
		FROM whatsapp_config
		ORDER BY created_at DESC
		LIMIT 1
	`
	var cfg WhatsAppConfig
	if err := s.pool.QueryRow(ctx, query).Scan(&cfg.Token, &cfg.PhoneNumberID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: fetch whatsapp config: %w", err)
	}
	return &cfg, nil
}
