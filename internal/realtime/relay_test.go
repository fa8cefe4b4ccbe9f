package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageagekun/docqueue/internal/domain/model"
	"github.com/ageagekun/docqueue/internal/testutil"
)

// memoryBus is an in-process RelayBus.
type memoryBus struct {
	mu        sync.Mutex
	published [][]byte
	onMsg     func([]byte)
	forwarded chan struct{}
	err       error
}

func newMemoryBus() *memoryBus { return &memoryBus{forwarded: make(chan struct{})} }

func (b *memoryBus) Publish(_ context.Context, payload []byte) error {
	b.mu.Lock()
	b.published = append(b.published, payload)
	fn := b.onMsg
	b.mu.Unlock()
	if fn != nil {
		fn(payload)
	}
	return nil
}

func (b *memoryBus) Forward(_ context.Context, onMsg func([]byte)) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	b.onMsg = onMsg
	b.mu.Unlock()
	close(b.forwarded)
	return nil
}

func TestRelayPublisher_EncodesEnvelope(t *testing.T) {
	bus := newMemoryBus()
	pub := NewRelayPublisher(bus, testutil.FixedTimeFunc(testutil.TestTime()))

	require.NoError(t, pub.Publish(context.Background(), model.EventMergeComplete, map[string]any{"batch_id": 3}))

	require.Len(t, bus.published, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(bus.published[0], &env))
	assert.Equal(t, model.EventMergeComplete, env.Type)
	assert.True(t, env.Timestamp.Equal(testutil.TestTime()))
}

func TestForwardRelay_DeliversToHubUntilCanceled(t *testing.T) {
	h := newHubHarness(t, 8)
	conn := newFakeConn()
	h.connect(t, conn)

	bus := newMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ForwardRelay(ctx, bus, h.hub) }()

	select {
	case <-bus.forwarded:
	case <-time.After(time.Second):
		t.Fatal("relay never subscribed")
	}

	pub := NewRelayPublisher(bus, nil)
	require.NoError(t, pub.Publish(context.Background(), model.EventMergeProgress, map[string]int{"current": 1}))
	require.Eventually(t, func() bool { return conn.count(model.EventMergeProgress) == 1 }, time.Second, 5*time.Millisecond)

	select {
	case <-done:
		t.Fatal("ForwardRelay returned before cancel")
	default:
	}
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ForwardRelay did not return after cancel")
	}
}

func TestForwardRelay_SubscribeError(t *testing.T) {
	bus := newMemoryBus()
	bus.err = errors.New("no route to redis")
	err := ForwardRelay(context.Background(), bus, NewHub(HubOptions{}))
	require.ErrorContains(t, err, "no route to redis")
}
