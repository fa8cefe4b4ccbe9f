package config

import (
	"strings"
	"time"
)

// RealtimeConfig contains live socket configuration.
type RealtimeConfig struct {
	// HeartbeatInterval is how often liveness is checked and heartbeats are sent.
	HeartbeatInterval time.Duration `env:"WS_HEARTBEAT_INTERVAL" envDefault:"30s"`

	// SendBuffer is the per-connection outbound queue. A client that falls
	// this many messages behind is disconnected.
	SendBuffer int `env:"WS_SEND_BUFFER" envDefault:"64"`

	// RelayChannel is the Redis pub/sub channel carrying events between processes.
	RelayChannel string `env:"REALTIME_RELAY_CHANNEL" envDefault:"docqueue:realtime"`
}

// Sanitize applies guardrails to realtime configuration values.
func (r *RealtimeConfig) Sanitize() {
	if r.HeartbeatInterval < time.Second {
		r.HeartbeatInterval = time.Second
	}
	if r.SendBuffer < 1 {
		r.SendBuffer = 1
	}
	if r.RelayChannel = strings.TrimSpace(r.RelayChannel); r.RelayChannel == "" {
		r.RelayChannel = "docqueue:realtime"
	}
}

// ListenerConfig controls the Postgres notification listener.
type ListenerConfig struct {
	// ReconnectDelay is the pause after the listening connection fails.
	ReconnectDelay time.Duration `env:"NOTIFY_RECONNECT_DELAY" envDefault:"5s"`

	// WaitWindow bounds one wait for a notification before the loop re-checks shutdown.
	WaitWindow time.Duration `env:"NOTIFY_WAIT_WINDOW" envDefault:"1m"`

	// SubscriberBuffer is the per-subscriber notification queue.
	SubscriberBuffer int `env:"NOTIFY_SUBSCRIBER_BUFFER" envDefault:"256"`
}

// Sanitize applies guardrails to listener configuration values.
func (l *ListenerConfig) Sanitize() {
	if l.ReconnectDelay < 100*time.Millisecond {
		l.ReconnectDelay = 100 * time.Millisecond
	}
	if l.WaitWindow < time.Second {
		l.WaitWindow = time.Second
	}
	if l.SubscriberBuffer < 1 {
		l.SubscriberBuffer = 1
	}
}
