package realtime

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout    = 10 * time.Second
	maxInboundFrame = 64 << 10
)

// wsConn adapts a websocket connection to Conn.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Send(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// OnPong runs fn from inside Receive, which processes control frames.
func (c *wsConn) OnPong(fn func()) {
	c.ws.SetPongHandler(func(string) error {
		fn()
		return nil
	})
}

func (c *wsConn) Receive() ([]byte, error) {
	for {
		kind, frame, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage {
			return frame, nil
		}
	}
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

// NewHandler serves the live protocol on an HTTP upgrade. allowedOrigin
// restricts browser origins; empty or "*" accepts any origin.
func NewHandler(hub *Hub, allowedOrigin string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "realtime_ws")
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if err := checkOrigin(allowedOrigin, r.Header.Get("Origin")); err != nil {
				logger.WarnContext(r.Context(), "realtime origin rejected", "error", err)
				return false
			}
			return true
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Upgrade writes the error response itself.
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.DebugContext(r.Context(), "realtime upgrade failed", "error", err)
			return
		}
		ws.SetReadLimit(maxInboundFrame)
		ctx := r.Context()
		if err := hub.Serve(ctx, &wsConn{ws: ws}); err != nil {
			logger.DebugContext(ctx, "realtime connection refused", "error", err)
		}
	})
}

func checkOrigin(allowed, origin string) error {
	if allowed == "" || allowed == "*" || origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme+"://"+u.Host != allowed {
		return fmt.Errorf("origin %q not allowed", origin)
	}
	return nil
}
