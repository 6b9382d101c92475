/*
Package bus relays broadcast events between server instances over Redis pub/sub so
that every instance's connections see the same fan-out.
*/
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"spiderlink/internal/pkg/logx"
)

// Event is one broadcast as it travels between instances.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Bus publishes broadcast events and delivers every published event, including
// this instance's own, to the subscriber.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, handle func(Event)) error
	Close() error
}

// RedisBus implements Bus on a single Redis pub/sub channel.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisBus connects to addr and verifies the server answers.
func NewRedisBus(ctx context.Context, addr, password, channel string) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisBus{
		client:  client,
		channel: channel,
		logger:  logx.Component("redis_bus").With().Str("channel", channel).Logger(),
	}, nil
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.Name, err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.Name, err)
	}
	return nil
}

// Subscribe blocks, handing each received event to handle, until ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, handle func(Event)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns control is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}
	b.logger.Info().Msg("Subscribed to broadcast channel")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Broadcast subscription stopped")
			return nil

		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}

			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn().Err(err).Msg("Dropping malformed broadcast event")
				continue
			}
			handle(ev)
		}
	}
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
