package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

// MessageFetcher is the remote fetch boundary the sync engine consumes.
type MessageFetcher interface {
	FetchMessages(ctx context.Context, conversationID string, forceFresh bool) ([]chat.Message, error)
}

// CachedFetcher is a read-through decorator over a MessageFetcher. It serves
// recent fetch results from redis unless forceFresh is set, in which case it
// bypasses and refreshes the cached snapshot.
type CachedFetcher struct {
	inner  MessageFetcher
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedFetcher(inner MessageFetcher, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedFetcher {
	if inner == nil {
		panic("store: inner fetcher cannot be nil")
	}
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedFetcher{inner: inner, client: client, ttl: ttl, logger: logger}
}

// FetchMessages implements MessageFetcher.
func (f *CachedFetcher) FetchMessages(ctx context.Context, conversationID string, forceFresh bool) ([]chat.Message, error) {
	key := fetchKey(conversationID)
	if !forceFresh {
		if data, err := f.client.Get(ctx, key).Bytes(); err == nil {
			var cached []chat.Message
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
			// Corrupt snapshot; fall through to a fresh fetch.
		}
	}

	messages, err := f.inner.FetchMessages(ctx, conversationID, forceFresh)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(messages); err == nil {
		if err := f.client.Set(ctx, key, data, f.ttl).Err(); err != nil {
			f.logger.Warn("failed to refresh fetch snapshot", "conversation_id", conversationID, "error", err)
		}
	}
	return messages, nil
}

func fetchKey(conversationID string) string {
	return fmt.Sprintf("fetch_snapshot:%s", conversationID)
}
