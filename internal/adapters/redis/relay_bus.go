package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultRelayChannel carries realtime envelopes between service processes.
const DefaultRelayChannel = "docqueue:realtime"

// RelayBus moves already-encoded realtime envelopes between processes over Redis
// pub/sub. Processes without client connections publish; the HTTP process forwards.
type RelayBus struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

// NewRelayBus creates a bus on channel (DefaultRelayChannel when empty).
func NewRelayBus(client redis.UniversalClient, channel string, logger *slog.Logger) *RelayBus {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayBus{client: client, channel: channel, logger: logger.With("component", "relay_bus")}
}

// Publish sends one encoded envelope.
func (b *RelayBus) Publish(ctx context.Context, payload []byte) error {
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Forward subscribes and calls onMsg for every payload until ctx ends. It
// returns once the subscription is confirmed; delivery continues in a goroutine.
func (b *RelayBus) Forward(ctx context.Context, onMsg func([]byte)) error {
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					b.logger.Warn("relay subscription closed")
					return
				}
				if m == nil {
					continue
				}
				onMsg([]byte(m.Payload))
			}
		}
	}()
	return nil
}
