// Package realtime fans typed envelopes out to live browser connections.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
	"github.com/ageagekun/docqueue/internal/observability/metrics"
	"github.com/ageagekun/docqueue/internal/observability/statsd"
)

const (
	// DefaultSendBuffer is the number of envelopes queued per connection
	// before the connection is considered too slow and dropped.
	DefaultSendBuffer = 64

	// DefaultHeartbeatInterval is the liveness window of a connection.
	DefaultHeartbeatInterval = 30 * time.Second

	connectionMessage = "connected to docqueue realtime updates"
)

// ErrHubClosed is returned by Serve after Shutdown started.
var ErrHubClosed = errors.New("realtime hub is shut down")

// Envelope is the frame format of every live message.
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Conn is one live client connection. Send and Ping are only called from the
// writer goroutine and Receive only from the reader; Close may be called from
// any goroutine and must unblock both.
type Conn interface {
	Send(payload []byte) error
	// Ping sends a protocol-level ping frame. Browsers answer it without any
	// application code, and the answer is reported to the OnPong handler.
	Ping() error
	// OnPong registers fn to run whenever the peer answers a Ping. It is
	// called once, before the first Receive.
	OnPong(fn func())
	Receive() ([]byte, error)
	Close() error
}

// HubOptions configures a Hub.
type HubOptions struct {
	SendBuffer int
	Logger     *slog.Logger
	Metrics    statsd.Sink
	Clock      func() time.Time
}

// Hub is the process-wide set of live connections. Envelopes are encoded once
// and queued on each connection without blocking; a connection whose queue is
// full is dropped.
type Hub struct {
	sendBuffer int
	logger     *slog.Logger
	metrics    statsd.Sink
	clock      func() time.Time

	mu        sync.RWMutex
	clients   map[*client]struct{}
	closed    bool
	releasers []func()
}

var _ core.EventPublisher = (*Hub)(nil)

// NewHub returns an empty hub.
func NewHub(opts HubOptions) *Hub {
	h := &Hub{
		sendBuffer: opts.SendBuffer,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
		clients:    make(map[*client]struct{}),
	}
	if h.sendBuffer <= 0 {
		h.sendBuffer = DefaultSendBuffer
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "realtime_hub")
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

type client struct {
	id    string
	conn  Conn
	send  chan []byte
	ping  chan struct{}
	alive atomic.Bool

	drain     chan struct{} // flush queued frames, then close
	done      chan struct{} // close now
	exited    chan struct{} // writer returned
	drainOnce sync.Once
	closeOnce sync.Once
}

func (c *client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// requestPing asks the writer to ping the peer. A ping already pending is enough.
func (c *client) requestPing() {
	select {
	case c.ping <- struct{}{}:
	default:
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) closeGracefully() {
	c.drainOnce.Do(func() { close(c.drain) })
}

// Serve registers conn, sends the connection acknowledgement and reads
// inbound frames until the connection fails, ctx ends, or the hub drops it.
func (h *Hub) Serve(ctx context.Context, conn Conn) error {
	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
		ping:   make(chan struct{}, 1),
		drain:  make(chan struct{}),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	c.alive.Store(true)

	ack, err := h.encode(model.EventConnection, map[string]string{"message": connectionMessage})
	if err != nil {
		return err
	}
	c.send <- ack

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.EmitConnections(h.metrics, n)
	logger := h.logger.With("client_id", c.id)
	logger.DebugContext(ctx, "realtime client connected", "connections", n)

	conn.OnPong(func() { c.alive.Store(true) })
	go h.write(c)

	stop := context.AfterFunc(ctx, c.close)
	defer stop()
	defer h.drop(c)

	for {
		frame, err := conn.Receive()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			logger.DebugContext(ctx, "realtime client disconnected", "error", err)
			return nil
		}
		c.alive.Store(true)
		h.handleInbound(ctx, c, frame)
	}
}

func (h *Hub) handleInbound(ctx context.Context, c *client, frame []byte) {
	var in struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &in); err != nil {
		h.logger.DebugContext(ctx, "ignoring malformed client frame", "client_id", c.id)
		return
	}
	if in.Type != model.EventPing {
		return
	}
	pong, err := h.encode(model.EventPong, nil)
	if err != nil {
		return
	}
	if !c.enqueue(pong) {
		h.drop(c)
	}
}

// write owns all sends on the connection.
func (h *Hub) write(c *client) {
	defer close(c.exited)
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.conn.Send(payload); err != nil {
				h.drop(c)
				return
			}
		case <-c.ping:
			if err := c.conn.Ping(); err != nil {
				h.drop(c)
				return
			}
		case <-c.drain:
			for {
				select {
				case payload := <-c.send:
					if err := c.conn.Send(payload); err != nil {
						c.close()
						return
					}
				default:
					c.close()
					return
				}
			}
		}
	}
}

// drop removes c from the set and closes it. It is safe to call repeatedly.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.close()
	if ok {
		metrics.EmitConnections(h.metrics, n)
	}
}

func (h *Hub) encode(eventType string, data any) ([]byte, error) {
	payload, err := json.Marshal(Envelope{Type: eventType, Data: data, Timestamp: h.clock().UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", eventType, err)
	}
	return payload, nil
}

// Publish encodes one envelope and fans it out to every connection.
func (h *Hub) Publish(_ context.Context, eventType string, data any) error {
	payload, err := h.encode(eventType, data)
	if err != nil {
		return err
	}
	h.fanOut(eventType, payload)
	return nil
}

// BroadcastRaw fans out an envelope that was encoded elsewhere, such as one
// received from the relay bus.
func (h *Hub) BroadcastRaw(payload []byte) {
	var in struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &in); err != nil || in.Type == "" {
		h.logger.Warn("dropping malformed relayed envelope")
		return
	}
	h.fanOut(in.Type, payload)
}

func (h *Hub) fanOut(eventType string, payload []byte) {
	var slow []*client
	delivered := 0

	h.mu.RLock()
	for c := range h.clients {
		if c.enqueue(payload) {
			delivered++
		} else {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow realtime client", "client_id", c.id, "type", eventType)
		h.drop(c)
	}
	metrics.EmitBroadcast(h.metrics, metrics.BroadcastMetric{
		Type:      eventType,
		Delivered: delivered,
		Dropped:   len(slow),
	})
}

// RunHeartbeat checks liveness every interval until ctx ends.
func (h *Hub) RunHeartbeat(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.CheckLiveness()
		}
	}
}

// CheckLiveness drops connections that neither answered the previous ping nor
// sent a frame since the previous check, then pings the rest and sends them
// a heartbeat envelope.
func (h *Hub) CheckLiveness() {
	var stale []*client
	var alive []*client

	h.mu.RLock()
	for c := range h.clients {
		if c.alive.Swap(false) {
			alive = append(alive, c)
		} else {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.logger.Info("dropping unresponsive realtime client", "client_id", c.id)
		h.drop(c)
	}
	if len(alive) == 0 {
		return
	}
	payload, err := h.encode(model.EventHeartbeat, nil)
	if err != nil {
		return
	}
	for _, c := range alive {
		if !c.enqueue(payload) {
			h.drop(c)
			continue
		}
		c.requestPing()
	}
}

// OnShutdown registers fn to run after all connections are closed. fn runs
// immediately when the hub is already shut down.
func (h *Hub) OnShutdown(fn func()) {
	h.mu.Lock()
	if !h.closed {
		h.releasers = append(h.releasers, fn)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	fn()
}

// Count reports the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown announces the shutdown to every connection, closes them once
// their queued frames are written (or ctx ends), then runs the registered
// releasers. New connections are refused afterwards.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	if err := h.Publish(ctx, model.EventServerShutdown, map[string]string{"message": "server shutting down"}); err != nil {
		h.logger.WarnContext(ctx, "announce shutdown", "error", err)
	}

	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	releasers := h.releasers
	h.releasers = nil
	h.mu.Unlock()

	for _, c := range clients {
		c.closeGracefully()
	}
	for _, c := range clients {
		select {
		case <-c.exited:
		case <-ctx.Done():
			c.close()
		}
	}
	metrics.EmitConnections(h.metrics, 0)

	for _, release := range releasers {
		release()
	}
	h.logger.InfoContext(ctx, "realtime hub shut down", "closed_connections", len(clients))
}
