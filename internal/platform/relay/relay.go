// Package relay fans presence and lock events out across server instances
// through Redis pub/sub. A single-instance deployment runs without it; the
// hub alone covers local observers.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/risflow/risflow/internal/platform/websocket"
)

const defaultChannel = "risflow:events"

// Relay publishes hub events to a Redis channel and re-broadcasts events
// received from other instances into the local hub.
type Relay struct {
	client  *redis.Client
	channel string
	hub     *websocket.Hub
	logger  zerolog.Logger

	// instanceID tags published events so a relay never re-broadcasts
	// its own messages.
	instanceID string
}

type envelope struct {
	Instance string          `json:"instance"`
	Event    websocket.Event `json:"event"`
}

// New connects to Redis and returns a Relay bound to the given hub.
func New(redisURL, instanceID string, hub *websocket.Hub, logger zerolog.Logger) (*Relay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Relay{
		client:     client,
		channel:    defaultChannel,
		hub:        hub,
		logger:     logger,
		instanceID: instanceID,
	}, nil
}

// NewWithClient builds a Relay from an existing Redis client.
func NewWithClient(client *redis.Client, instanceID string, hub *websocket.Hub, logger zerolog.Logger) *Relay {
	return &Relay{
		client:     client,
		channel:    defaultChannel,
		hub:        hub,
		logger:     logger,
		instanceID: instanceID,
	}
}

// Publish sends an event to the shared channel and to the local hub.
func (r *Relay) Publish(ctx context.Context, event websocket.Event) error {
	r.hub.Broadcast(event.Topic, event)

	payload, err := json.Marshal(envelope{Instance: r.instanceID, Event: event})
	if err != nil {
		return fmt.Errorf("marshal relay envelope: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish relay event: %w", err)
	}
	return nil
}

// Run subscribes to the shared channel and re-broadcasts remote events into
// the local hub until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn().Err(err).Msg("relay: dropping malformed event")
				continue
			}
			if env.Instance == r.instanceID {
				continue
			}
			r.hub.Broadcast(env.Event.Topic, env.Event)
		}
	}
}

// Close releases the Redis client.
func (r *Relay) Close() error {
	return r.client.Close()
}

// Ping verifies the Redis connection.
func (r *Relay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
