// Package queue fans committed queue-store notifications out to in-process subscribers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrSourceRequired indicates a notifier cannot be constructed without a notification source.
var ErrSourceRequired = errors.New("notification source is required")

// Notification is one committed event read from a store channel.
type Notification struct {
	Channel string
	Payload []byte
	// Lagged marks a notification without payload telling the subscriber that
	// earlier notifications on Channel were lost because its buffer was full.
	// State derived from the channel must be reloaded from the store.
	Lagged bool
}

// Decode unmarshals the JSON payload into v.
func (n Notification) Decode(v any) error {
	if err := json.Unmarshal(n.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", n.Channel, err)
	}
	return nil
}

// Source blocks until the next notification arrives on any listened channel.
type Source interface {
	WaitForNotification(ctx context.Context) (Notification, error)
}

// Notifier manages subscriptions to store notification channels.
type Notifier interface {
	Subscribe(channel string) (func(), <-chan Notification)
	StopAll()
}

// NotifierOptions configure the default notifier.
type NotifierOptions struct {
	Source     Source
	WaitWindow time.Duration
	Backoff    time.Duration
	// Buffer is the per-subscriber channel capacity.
	Buffer int
	Logger *slog.Logger
}

// lagRetry bounds how long a lagged subscriber waits for its marker when the
// source is quiet.
const lagRetry = 20 * time.Millisecond

// DefaultNotifier reads from a single Source and delivers each notification to
// every subscriber of its channel. Delivery never blocks the read loop: a
// subscriber whose buffer is full misses the notification, is marked lagged,
// and receives a Lagged marker as soon as it has room again.
type DefaultNotifier struct {
	source     Source
	waitWindow time.Duration
	backoff    time.Duration
	buffer     int
	logger     *slog.Logger

	mu sync.Mutex
	// subs maps channel -> subscriber -> lagged.
	subs    map[string]map[chan Notification]bool
	lagging int
	cancel  context.CancelFunc
	dropped atomic.Int64
}

// NewNotifier constructs the default notifier implementation.
func NewNotifier(opts NotifierOptions) (*DefaultNotifier, error) {
	if opts.Source == nil {
		return nil, ErrSourceRequired
	}

	waitWindow := opts.WaitWindow
	if waitWindow <= 0 {
		waitWindow = time.Minute
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DefaultNotifier{
		source:     opts.Source,
		waitWindow: waitWindow,
		backoff:    backoff,
		buffer:     buffer,
		logger:     logger.With("component", "queue_notifier"),
		subs:       make(map[string]map[chan Notification]bool),
	}, nil
}

// Subscribe registers interest in a channel. The read loop starts with the first subscription.
// The returned func unsubscribes and closes the channel; it is safe to call more than once.
func (n *DefaultNotifier) Subscribe(channel string) (func(), <-chan Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		n.cancel = cancel
		go n.listenLoop(ctx)
	}

	ch := make(chan Notification, n.buffer)
	if n.subs[channel] == nil {
		n.subs[channel] = make(map[chan Notification]bool)
	}
	n.subs[channel][ch] = false

	unsub := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subscribers := n.subs[channel]
		lagged, ok := subscribers[ch]
		if !ok {
			return
		}
		if lagged {
			n.lagging--
		}
		delete(subscribers, ch)
		drainAndClose(ch)
		if len(subscribers) == 0 {
			delete(n.subs, channel)
		}
		if len(n.subs) == 0 {
			n.stopLoop()
		}
	}
	return unsub, ch
}

// StopAll stops the read loop and closes every subscriber channel.
func (n *DefaultNotifier) StopAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stopLoop()
	for channel, subscribers := range n.subs {
		for ch := range subscribers {
			drainAndClose(ch)
		}
		delete(n.subs, channel)
	}
	n.lagging = 0
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (n *DefaultNotifier) Dropped() int64 {
	return n.dropped.Load()
}

func (n *DefaultNotifier) stopLoop() {
	if n.cancel == nil {
		return
	}
	n.cancel()
	n.cancel = nil
}

func (n *DefaultNotifier) listenLoop(ctx context.Context) {
	for ctx.Err() == nil {
		window := n.waitWindow
		if n.flushLagged() > 0 && window > lagRetry {
			window = lagRetry
		}
		waitCtx, cancel := context.WithTimeout(ctx, window)
		note, err := n.source.WaitForNotification(waitCtx)
		cancel()

		if err == nil {
			n.broadcast(note)
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			// wait window elapsed without traffic
			continue
		}

		n.logger.WarnContext(ctx, "notification source failed", "error", err, "backoff", n.backoff)
		timer := time.NewTimer(n.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (n *DefaultNotifier) broadcast(note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subscribers := n.subs[note.Channel]
	for ch, lagged := range subscribers {
		if lagged {
			if !n.markCaughtUp(subscribers, note.Channel, ch) {
				n.dropped.Add(1)
				continue
			}
		}
		select {
		case ch <- note:
		default:
			n.dropped.Add(1)
			subscribers[ch] = true
			n.lagging++
			n.logger.Warn("subscriber buffer full, notification dropped", "channel", note.Channel)
		}
	}
}

// flushLagged offers pending Lagged markers and returns how many subscribers
// are still waiting for one.
func (n *DefaultNotifier) flushLagged() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lagging == 0 {
		return 0
	}
	for channel, subscribers := range n.subs {
		for ch, lagged := range subscribers {
			if lagged {
				n.markCaughtUp(subscribers, channel, ch)
			}
		}
	}
	return n.lagging
}

// markCaughtUp delivers the Lagged marker to ch. Callers hold n.mu.
func (n *DefaultNotifier) markCaughtUp(subscribers map[chan Notification]bool, channel string, ch chan Notification) bool {
	select {
	case ch <- Notification{Channel: channel, Lagged: true}:
		subscribers[ch] = false
		n.lagging--
		return true
	default:
		return false
	}
}

// drainAndClose removes any buffered notifications before closing the channel so
// receivers observe a closed channel immediately.
func drainAndClose(ch chan Notification) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ Notifier = (*DefaultNotifier)(nil)
