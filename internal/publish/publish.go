// Package publish delivers notifications to live subscribers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rpggio/curator/internal/domain/notification"
)

// DefaultChannel prefixes the per-recipient Redis channels.
const DefaultChannel = "curator:notifications"

type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes each notification as JSON on the recipient's channel.
type RedisPublisher struct {
	client  publishClient
	closer  func() error
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(addr, password string, db int, channel string, logger *slog.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	p := newRedisPublisher(client, channel, logger)
	p.closer = client.Close
	return p, nil
}

func newRedisPublisher(client publishClient, channel string, logger *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		prefix:  channel,
		timeout: 500 * time.Millisecond,
		logger:  logger,
	}
}

// Channel returns the channel notifications for recipientID are published on.
func (p *RedisPublisher) Channel(recipientID string) string {
	return p.prefix + ":" + recipientID
}

// Publish sends n to its recipient's channel.
func (p *RedisPublisher) Publish(ctx context.Context, n notification.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	receivers, err := p.client.Publish(ctx, p.Channel(n.RecipientID), payload).Result()
	if err != nil {
		return fmt.Errorf("publishing to redis: %w", err)
	}
	if p.logger != nil {
		p.logger.Debug("notification published", "id", n.ID, "recipient", n.RecipientID, "receivers", receivers)
	}
	return nil
}

// Close releases the Redis connection.
func (p *RedisPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// LogPublisher writes notifications to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs n.
func (p *LogPublisher) Publish(_ context.Context, n notification.Notification) error {
	if p.logger == nil {
		return nil
	}
	p.logger.Info("notification",
		"id", n.ID,
		"recipient", n.RecipientID,
		"type", n.Type,
		"priority", n.Priority,
		"collection_id", n.CollectionID,
		"title", n.Title)
	return nil
}
