package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinigo/platform/internal/events"
	"github.com/clinigo/platform/pkg/logging"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "clinigo:queue:"

// Publisher pushes queue events onto the per-doctor Redis channel. It
// satisfies the outbox fanout's publisher contract.
type Publisher struct {
	redis *redis.Client
}

func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{redis: redisClient}
}

func (p *Publisher) PublishQueueEvent(ctx context.Context, doctorID string, payload events.QueuePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("realtime: marshal event: %w", err)
	}
	if err := p.redis.Publish(ctx, channelPrefix+doctorID, data).Err(); err != nil {
		return fmt.Errorf("realtime: publish: %w", err)
	}
	return nil
}

// Bridge subscribes to the queue channels and relays events into the hub,
// so every API instance delivers to its own connections.
type Bridge struct {
	redis  *redis.Client
	hub    *Hub
	logger *logging.Logger
}

func NewBridge(redisClient *redis.Client, hub *Hub, logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.Default()
	}
	return &Bridge{redis: redisClient, hub: hub, logger: logger}
}

// Run blocks relaying messages until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.redis.PSubscribe(ctx, channelPrefix+"*")
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			doctorID := strings.TrimPrefix(msg.Channel, channelPrefix)
			var payload events.QueuePayload
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				b.logger.Error("dropping malformed realtime message", "error", err, "channel", msg.Channel)
				continue
			}
			b.hub.Broadcast(doctorID, payload)
		}
	}
}
