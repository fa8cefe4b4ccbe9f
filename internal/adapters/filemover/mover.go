// Package filemover relocates uploaded documents into their "uploaded" folder
// and advances them to ready_to_print.
package filemover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ageagekun/docqueue/internal/domain/model"
	"github.com/ageagekun/docqueue/internal/domain/queue"
	apperrors "github.com/ageagekun/docqueue/internal/errors"
	"github.com/ageagekun/docqueue/internal/observability/metrics"
	"github.com/ageagekun/docqueue/internal/observability/statsd"
	"github.com/ageagekun/docqueue/internal/pathsafe"
)

// DefaultSweepInterval is how often uploaded items are re-checked when no
// notification arrives.
const DefaultSweepInterval = time.Minute

// Items is the subset of queue operations the mover drives.
type Items interface {
	ListByStatus(ctx context.Context, statuses []model.QueueStatus) ([]*model.QueueItem, error)
	MarkReadyToPrint(ctx context.Context, id int64, newPath string) (*model.QueueItem, error)
	RecordMoveFailure(ctx context.Context, fileID int64, message string) error
}

// Options configures a Mover.
type Options struct {
	Notifier      queue.Notifier // Required: file movement notifications
	Items         Items          // Required
	Root          *pathsafe.Root // Required: both ends of a move must resolve inside it
	SweepInterval time.Duration
	Logger        *slog.Logger
	Metrics       statsd.Sink
}

// Mover consumes file movement notifications. Moves are idempotent: a repeated
// event for a file that already moved only re-applies the status change.
type Mover struct {
	notifier queue.Notifier
	items    Items
	root     *pathsafe.Root
	interval time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
}

// New validates options and returns a Mover.
func New(opts Options) (*Mover, error) {
	if opts.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if opts.Items == nil {
		return nil, errors.New("queue items are required")
	}
	if opts.Root == nil {
		return nil, errors.New("files root is required")
	}
	interval := opts.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Mover{
		notifier: opts.Notifier,
		items:    opts.Items,
		root:     opts.Root,
		interval: interval,
		logger:   logger.With("component", "file_mover"),
		metrics:  opts.Metrics,
	}, nil
}

// Run handles notifications until ctx is canceled. Uploaded items are also
// swept at start, after every listener reconnect, and periodically, which
// covers notifications missed while disconnected.
func (m *Mover) Run(ctx context.Context) error {
	unsubMoves, moves := m.notifier.Subscribe(model.ChannelFileMovement)
	defer unsubMoves()
	unsubResync, resyncs := m.notifier.Subscribe(model.ChannelResync)
	defer unsubResync()

	m.logger.InfoContext(ctx, "starting file mover", "root", m.root.Dir(), "sweep_interval", m.interval)
	m.Sweep(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case note, ok := <-moves:
			if !ok {
				return nil
			}
			if note.Lagged {
				m.Sweep(ctx)
				continue
			}
			var ev model.FileMovementEvent
			if err := note.Decode(&ev); err != nil {
				m.logger.WarnContext(ctx, "malformed file movement notification", "error", err)
				continue
			}
			m.Move(ctx, ev)
		case _, ok := <-resyncs:
			if !ok {
				return nil
			}
			m.Sweep(ctx)
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep re-drives the move of every item still in uploaded.
func (m *Mover) Sweep(ctx context.Context) {
	items, err := m.items.ListByStatus(ctx, []model.QueueStatus{model.QueueStatusUploaded})
	if err != nil {
		if ctx.Err() == nil {
			m.logger.ErrorContext(ctx, "list uploaded items", "error", err)
		}
		return
	}
	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		ev := model.FileMovementEvent{
			QueueID: item.ID,
			FileID:  item.FileID,
			OldPath: item.Payload.Pass,
			NewPath: model.UploadedPath(item.Payload),
		}
		m.move(ctx, ev, item.ErrorMessage)
	}
}

// Move performs one relocation and the uploaded → ready_to_print transition.
func (m *Mover) Move(ctx context.Context, ev model.FileMovementEvent) {
	m.move(ctx, ev, nil)
}

func (m *Mover) move(ctx context.Context, ev model.FileMovementEvent, prevErr *string) {
	logger := m.logger.With("queue_id", ev.QueueID, "file_id", ev.FileID)
	if ev.OldPath == "" || ev.NewPath == "" {
		logger.WarnContext(ctx, "file movement without paths ignored")
		metrics.EmitFileMove(m.metrics, metrics.ResultSkipped, nil)
		return
	}

	src, srcErr := m.root.Resolve(ev.OldPath)
	dst, dstErr := m.root.Resolve(ev.NewPath)
	if srcErr != nil || dstErr != nil {
		logger.WarnContext(ctx, "file movement outside files root denied",
			"old_path", ev.OldPath, "new_path", ev.NewPath)
		m.fail(ctx, ev, prevErr, "file move denied: path outside the document root")
		metrics.EmitFileMove(m.metrics, metrics.ResultRejected, nil)
		return
	}

	moved, err := relocate(src, dst)
	switch {
	case errors.Is(err, errSourceMissing):
		logger.InfoContext(ctx, "source file missing; stale file movement skipped", "old_path", src)
		metrics.EmitFileMove(m.metrics, metrics.ResultSkipped, nil)
		return
	case err != nil:
		logger.ErrorContext(ctx, "file move failed", "old_path", src, "new_path", dst, "error", err)
		m.fail(ctx, ev, prevErr, "file move failed: "+err.Error())
		metrics.EmitFileMove(m.metrics, metrics.ResultError, err)
		return
	}
	if moved {
		logger.InfoContext(ctx, "file moved", "old_path", src, "new_path", dst)
	}

	if _, err := m.items.MarkReadyToPrint(ctx, ev.QueueID, dst); err != nil {
		if apperrors.IsStateConflict(err) {
			logger.DebugContext(ctx, "duplicate file movement; item already advanced")
			metrics.EmitFileMove(m.metrics, metrics.ResultSkipped, nil)
			return
		}
		logger.ErrorContext(ctx, "advance moved item", "error", err)
		metrics.EmitFileMove(m.metrics, metrics.ResultError, err)
		return
	}
	metrics.EmitFileMove(m.metrics, metrics.ResultSuccess, nil)
}

// fail records msg on the document's items, unless the same message is
// already recorded.
func (m *Mover) fail(ctx context.Context, ev model.FileMovementEvent, prevErr *string, msg string) {
	if prevErr != nil && *prevErr == msg {
		return
	}
	if err := m.items.RecordMoveFailure(ctx, ev.FileID, msg); err != nil {
		m.logger.ErrorContext(ctx, "record file move failure", "file_id", ev.FileID, "error", err)
	}
}

var errSourceMissing = errors.New("source file missing")

// relocate renames src to dst. It reports moved=false when dst already holds
// the file from an earlier attempt.
func relocate(src, dst string) (bool, error) {
	if src == dst {
		return false, nil
	}
	if _, err := os.Stat(src); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("stat source: %w", err)
		}
		if _, err := os.Stat(dst); err == nil {
			return false, nil
		}
		return false, errSourceMissing
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return false, fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return false, fmt.Errorf("rename: %w", err)
	}
	return true, nil
}
