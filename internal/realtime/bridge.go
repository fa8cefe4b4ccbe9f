package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
	"github.com/ageagekun/docqueue/internal/domain/queue"
)

// StatsSource computes the daily summary attached to all_tasks_complete.
type StatsSource interface {
	DailyStats(ctx context.Context) (*model.DailyStats, error)
}

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	Notifier queue.Notifier      // Required
	Events   core.EventPublisher // Required: usually the local Hub
	Stats    StatsSource         // Required
	Hub      *Hub                // Optional: subscriptions are released on its shutdown
	Logger   *slog.Logger
}

// Bridge turns committed store notifications into live envelopes.
type Bridge struct {
	notifier queue.Notifier
	events   core.EventPublisher
	stats    StatsSource
	hub      *Hub
	logger   *slog.Logger
}

// NewBridge validates options and returns a Bridge.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if opts.Events == nil {
		return nil, errors.New("event publisher is required")
	}
	if opts.Stats == nil {
		return nil, errors.New("stats source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		notifier: opts.Notifier,
		events:   opts.Events,
		stats:    opts.Stats,
		hub:      opts.Hub,
		logger:   logger.With("component", "realtime_bridge"),
	}, nil
}

// Run forwards notifications until ctx ends or the subscriptions are released.
func (b *Bridge) Run(ctx context.Context) error {
	unsubStatus, statuses := b.notifier.Subscribe(model.ChannelQueueStatusChanged)
	unsubDone, completions := b.notifier.Subscribe(model.ChannelAllTasksComplete)
	unsubResync, resyncs := b.notifier.Subscribe(model.ChannelResync)

	var once sync.Once
	release := func() {
		once.Do(func() {
			unsubStatus()
			unsubDone()
			unsubResync()
		})
	}
	defer release()
	if b.hub != nil {
		b.hub.OnShutdown(release)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case note, ok := <-statuses:
			if !ok {
				return nil
			}
			if note.Lagged {
				b.resync(ctx, note.Channel)
				continue
			}
			var ev model.StatusChangedEvent
			if err := note.Decode(&ev); err != nil {
				b.logger.WarnContext(ctx, "malformed status notification", "error", err)
				continue
			}
			b.publish(ctx, model.EventQueueUpdate, ev)
		case note, ok := <-completions:
			if !ok {
				return nil
			}
			if note.Lagged {
				b.resync(ctx, note.Channel)
				continue
			}
			var ev model.AllTasksCompleteEvent
			if err := note.Decode(&ev); err != nil {
				b.logger.WarnContext(ctx, "malformed completion notification", "error", err)
				continue
			}
			b.publish(ctx, model.EventAllTasksComplete, b.report(ctx, ev))
		case _, ok := <-resyncs:
			if !ok {
				return nil
			}
			b.publish(ctx, model.EventResync, nil)
		}
	}
}

// resync tells clients to reload after this process lost notifications.
func (b *Bridge) resync(ctx context.Context, channel string) {
	b.logger.WarnContext(ctx, "notifications lost, asking clients to reload", "channel", channel)
	b.publish(ctx, model.EventResync, nil)
}

func (b *Bridge) report(ctx context.Context, ev model.AllTasksCompleteEvent) model.AllTasksCompleteReport {
	report := model.AllTasksCompleteReport{CompletedAt: ev.CompletedAt}
	stats, err := b.stats.DailyStats(ctx)
	if err != nil {
		b.logger.WarnContext(ctx, "compute daily stats for completion report", "error", err)
		return report
	}
	report.Stats = *stats
	return report
}

func (b *Bridge) publish(ctx context.Context, eventType string, data any) {
	if err := b.events.Publish(ctx, eventType, data); err != nil {
		b.logger.WarnContext(ctx, "publish realtime event", "type", eventType, "error", err)
	}
}
