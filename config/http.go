package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CORSOrigin is the browser origin allowed to call the API and open the
	// live socket. Empty disables CORS headers and origin checks.
	CORSOrigin string `env:"HTTP_CORS_ORIGIN" envDefault:""`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT"        envDefault:"120s"`

	// WriteTimeout applies to whole responses, so it stays off by default:
	// PDF streams and live sockets outlive any fixed bound.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"`

	// MaxConnections caps concurrently open client connections, live sockets
	// included. Zero means unlimited.
	MaxConnections int `env:"HTTP_MAX_CONNECTIONS" envDefault:"0"`

	// ShutdownTimeout bounds draining in-flight requests on shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	h.CORSOrigin = strings.TrimRight(strings.TrimSpace(h.CORSOrigin), "/")
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.WriteTimeout < 0 {
		h.WriteTimeout = 0
	}
	if h.MaxConnections < 0 {
		h.MaxConnections = 0
	}
	if h.ShutdownTimeout < time.Second {
		h.ShutdownTimeout = time.Second
	}
}
