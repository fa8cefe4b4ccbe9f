package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ageagekun/docqueue/internal/core"
)

// RelayBus moves encoded envelopes between processes.
type RelayBus interface {
	Publish(ctx context.Context, payload []byte) error
	Forward(ctx context.Context, onMsg func([]byte)) error
}

// RelayPublisher publishes envelopes on the relay bus instead of a local hub,
// so every HTTP process forwarding the bus reaches its own connections.
type RelayPublisher struct {
	bus   RelayBus
	clock func() time.Time
}

var _ core.EventPublisher = (*RelayPublisher)(nil)

// NewRelayPublisher returns a publisher writing to bus.
func NewRelayPublisher(bus RelayBus, clock func() time.Time) *RelayPublisher {
	if clock == nil {
		clock = time.Now
	}
	return &RelayPublisher{bus: bus, clock: clock}
}

// Publish encodes the envelope and sends it on the bus.
func (p *RelayPublisher) Publish(ctx context.Context, eventType string, data any) error {
	payload, err := json.Marshal(Envelope{Type: eventType, Data: data, Timestamp: p.clock().UTC()})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}
	return p.bus.Publish(ctx, payload)
}

// ForwardRelay delivers every envelope received on bus to hub until ctx ends.
func ForwardRelay(ctx context.Context, bus RelayBus, hub *Hub) error {
	if err := bus.Forward(ctx, hub.BroadcastRaw); err != nil {
		return fmt.Errorf("forward realtime relay: %w", err)
	}
	<-ctx.Done()
	return nil
}
