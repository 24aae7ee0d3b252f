package notifier

import (
	"context"
	"encoding/json"

	"learnhub/internal/cache"
	"learnhub/internal/domain"
	"learnhub/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher implements domain.EventPublisher over a Redis pub/sub
// channel. Delivery is fire-and-forget: a failed publish is logged and
// dropped so it can never fail the transaction that produced the event.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a new RedisPublisher instance
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: cache.GenerateCacheKey("notifier", "events", "stream"),
	}
}

// Publish serializes the event and pushes it onto the channel.
func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Get().Error("failed to marshal event",
			zap.String("type", string(event.Type)),
			zap.Error(err))
		return
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		logger.Get().Warn("failed to publish event",
			zap.String("type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.Error(err))
		return
	}

	logger.Get().Debug("event published",
		zap.String("type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("course_id", event.CourseID))
}

// NopPublisher discards every event. Used where no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Event) {}
