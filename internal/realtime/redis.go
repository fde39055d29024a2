package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisPublishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes frames on Redis channels so every API instance can
// relay them to its own websocket clients.
type RedisPublisher struct {
	client redisPublishClient
	prefix string
}

// NewRedisPublisher builds a publisher writing to <prefix><topic>.
func NewRedisPublisher(client redisPublishClient, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the Redis channel for topic.
func (p *RedisPublisher) Channel(topic string) string {
	return p.prefix + topic
}

// Publish sends msg to the Redis channel of its topic.
func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(msg.Topic), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	return nil
}

// Relay forwards frames published on Redis into the local hub.
type Relay struct {
	client *redis.Client
	hub    Publisher
	prefix string
	logger *zap.Logger
}

// NewRelay creates a relay for channels under prefix.
func NewRelay(client *redis.Client, hub Publisher, prefix string, logger *zap.Logger) *Relay {
	return &Relay{client: client, hub: hub, prefix: prefix, logger: logger}
}

// Run blocks until ctx is cancelled, forwarding every ticket frame.
func (r *Relay) Run(ctx context.Context) error {
	pattern := r.prefix + TicketTopic("*")
	pubsub := r.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", pattern, err)
	}
	r.logger.Info("realtime relay subscribed", zap.String("pattern", pattern))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if err := r.forward(ctx, m.Channel, m.Payload); err != nil {
				r.logger.Warn("dropping relayed frame", zap.String("channel", m.Channel), zap.Error(err))
			}
		}
	}
}

func (r *Relay) forward(ctx context.Context, channel, payload string) error {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	if msg.Topic == "" {
		msg.Topic = strings.TrimPrefix(channel, r.prefix)
	}
	return r.hub.Publish(ctx, msg)
}
