// Package cache provides the conversation-local message cache. It is the
// always-available read/write side of the sync engine; the durable remote
// store lives in internal/store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
)

const defaultTTL = 24 * time.Hour

// MessageCache stores messages per conversation in a redis hash keyed by
// message id, so repeated writes of the same message are idempotent.
type MessageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMessageCache builds a redis-backed message cache. A non-positive ttl
// falls back to 24h.
func NewMessageCache(client *redis.Client, ttl time.Duration) *MessageCache {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MessageCache{client: client, ttl: ttl}
}

// Get returns all cached messages for a conversation, sorted ascending by
// creation time. A missing key yields an empty slice.
func (c *MessageCache) Get(ctx context.Context, conversationID string) ([]chat.Message, error) {
	entries, err := c.client.HGetAll(ctx, messagesKey(conversationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: read messages: %w", err)
	}

	messages := make([]chat.Message, 0, len(entries))
	for _, raw := range entries {
		var msg chat.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			// Skip corrupt entries rather than poisoning the whole read.
			continue
		}
		messages = append(messages, msg)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

// Put writes one message into its conversation's hash and refreshes the TTL.
func (c *MessageCache) Put(ctx context.Context, msg chat.Message) error {
	if msg.ID == "" {
		return errors.New("cache: message id required")
	}
	if msg.ConversationID == "" {
		return errors.New("cache: conversation id required")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("cache: marshal message: %w", err)
	}
	key := messagesKey(msg.ConversationID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, msg.ID, data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: write message: %w", err)
	}
	return nil
}

// Purge drops all cached messages for a conversation.
func (c *MessageCache) Purge(ctx context.Context, conversationID string) error {
	if err := c.client.Del(ctx, messagesKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("cache: purge conversation: %w", err)
	}
	return nil
}

func messagesKey(conversationID string) string {
	return fmt.Sprintf("messages:%s", conversationID)
}
