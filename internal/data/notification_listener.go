package data

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/ageagekun/docqueue/internal/domain/model"
	"github.com/ageagekun/docqueue/internal/domain/queue"
)

// ErrListenerClosed is returned after Close.
var ErrListenerClosed = errors.New("notification listener closed")

// PgListenerOptions configure a PgListener.
type PgListenerOptions struct {
	DB       *sql.DB
	Channels []string
	Logger   *slog.Logger
}

// PgListener holds one pooled connection in LISTEN mode for the lifetime of the
// process and exposes its notifications as a queue.Source.
//
// Each time a connection is (re)established the listener yields a synthetic
// model.ChannelResync notification first, because anything published while it
// was disconnected is lost and consumers must reload from the store.
type PgListener struct {
	db       *sql.DB
	channels []string
	logger   *slog.Logger

	mu        sync.Mutex
	conn      *sql.Conn
	closed    bool
	connected atomic.Bool
}

// NewPgListener creates a listener. No connection is made until the first wait.
func NewPgListener(opts PgListenerOptions) *PgListener {
	channels := opts.Channels
	if len(channels) == 0 {
		channels = model.ListenedChannels()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PgListener{
		db:       opts.DB,
		channels: channels,
		logger:   logger.With("component", "pg_listener"),
	}
}

// Connected reports whether the LISTEN connection is currently established.
func (l *PgListener) Connected() bool {
	return l.connected.Load()
}

// WaitForNotification blocks until a notification arrives or ctx ends. A context
// deadline leaves the connection listening; any other failure drops it and the
// next call reconnects.
func (l *PgListener) WaitForNotification(ctx context.Context) (queue.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return queue.Notification{}, ErrListenerClosed
	}
	if l.conn == nil {
		if err := l.connect(ctx); err != nil {
			return queue.Notification{}, err
		}
		return queue.Notification{Channel: model.ChannelResync}, nil
	}

	var note queue.Notification
	err := l.conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		n, waitErr := sc.Conn().WaitForNotification(ctx)
		if waitErr != nil {
			if sc.Conn().IsClosed() {
				return driver.ErrBadConn
			}
			return waitErr
		}
		note = queue.Notification{Channel: n.Channel, Payload: []byte(n.Payload)}
		return nil
	})
	if err == nil {
		return note, nil
	}
	if ctx.Err() != nil && !errors.Is(err, driver.ErrBadConn) {
		return queue.Notification{}, ctx.Err()
	}

	l.logger.WarnContext(ctx, "listen connection lost", "error", err)
	l.dropConn()
	return queue.Notification{}, fmt.Errorf("wait for notification: %w", err)
}

func (l *PgListener) connect(ctx context.Context) error {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get listen conn: %w", err)
	}
	for _, ch := range l.channels {
		if _, err := conn.ExecContext(ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize()); err != nil {
			_ = conn.Close()
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	l.conn = conn
	l.connected.Store(true)
	l.logger.InfoContext(ctx, "listening for queue notifications", "channels", l.channels)
	return nil
}

func (l *PgListener) dropConn() {
	if l.conn == nil {
		return
	}
	// a pooled connection must not keep its subscriptions
	if _, err := l.conn.ExecContext(context.Background(), "UNLISTEN *"); err != nil {
		l.logger.Debug("unlisten failed", "error", err)
	}
	_ = l.conn.Close()
	l.conn = nil
	l.connected.Store(false)
}

// Close releases the listen connection. Callers should first cancel any
// in-progress wait, which holds the connection until it returns.
func (l *PgListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.dropConn()
	return nil
}

var _ queue.Source = (*PgListener)(nil)
