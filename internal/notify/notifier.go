// Package notify carries the side effect triggered when an inbound guest
// message arrives through the push channel.
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

// Notifier receives inbound-message notifications.
type Notifier interface {
	NotifyInbound(ctx context.Context, msg chat.Message)
}

// LogNotifier records notifications in the structured log.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyInbound(ctx context.Context, msg chat.Message) {
	n.logger.Info("inbound guest message",
		"conversation_id", msg.ConversationID,
		"message_id", msg.ID,
	)
}

// RedisPublisher fans notifications out on a redis pub/sub channel so UI
// processes can surface them without polling.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *logging.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger *logging.Logger) *RedisPublisher {
	if client == nil {
		panic("notify: redis client cannot be nil")
	}
	if channel == "" {
		channel = "notifications:inbound"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

func (n *RedisPublisher) NotifyInbound(ctx context.Context, msg chat.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("failed to encode notification", "error", err, "message_id", msg.ID)
		return
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.Error("failed to publish notification", "error", err, "message_id", msg.ID)
	}
}

// Multi forwards each notification to every wrapped notifier.
type Multi []Notifier

func (m Multi) NotifyInbound(ctx context.Context, msg chat.Message) {
	for _, n := range m {
		if n != nil {
			n.NotifyInbound(ctx, msg)
		}
	}
}

// ChannelName returns the configured pub/sub channel, for consumers.
func (n *RedisPublisher) ChannelName() string {
	return n.channel
}
