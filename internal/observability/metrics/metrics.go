// Package metrics emits the standard queue, merge, mover, and broadcast metrics.
package metrics

import (
	"time"

	obserrors "github.com/ageagekun/docqueue/internal/observability/errors"
	"github.com/ageagekun/docqueue/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultRejected = "rejected"
	ResultSkipped  = "skipped"
)

// TransitionMetric describes one status transition attempt.
type TransitionMetric struct {
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitTransition counts a transition attempt and records its latency.
func EmitTransition(sink statsd.Sink, in TransitionMetric) {
	if sink == nil {
		return
	}
	tags := withErrorClass(map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}, in.Result, in.Err)

	sink.Count("queue.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("queue.transition.duration", in.Duration, CloneTags(tags))
	}
}

// MergeJobMetric describes a finished merge job.
type MergeJobMetric struct {
	Status    string
	Documents int
	Succeeded int
	Failed    int
	Pages     int
	Duration  time.Duration
}

// EmitMergeJob records the outcome of a merge job.
func EmitMergeJob(sink statsd.Sink, in MergeJobMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"status": in.Status}
	sink.Count("merge.job", 1, tags)
	sink.Count("merge.documents.succeeded", int64(in.Succeeded), CloneTags(tags))
	sink.Count("merge.documents.failed", int64(in.Failed), CloneTags(tags))
	sink.Gauge("merge.pages", float64(in.Pages), CloneTags(tags))
	if in.Duration > 0 {
		sink.Timing("merge.duration", in.Duration, CloneTags(tags))
	}
}

// EmitMergeQueueDepth records how many jobs are waiting for the worker.
func EmitMergeQueueDepth(sink statsd.Sink, depth int) {
	if sink == nil {
		return
	}
	sink.Gauge("merge.queue_depth", float64(depth), nil)
}

// EmitFileMove counts a file mover outcome.
func EmitFileMove(sink statsd.Sink, result string, err error) {
	if sink == nil {
		return
	}
	sink.Count("filemover.move", 1, withErrorClass(map[string]string{"result": result}, result, err))
}

// BroadcastMetric describes one fan-out of an envelope.
type BroadcastMetric struct {
	Type      string
	Delivered int
	Dropped   int
}

// EmitBroadcast records a fan-out and the number of connections it reached.
func EmitBroadcast(sink statsd.Sink, in BroadcastMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"type": in.Type}
	sink.Count("realtime.broadcast", 1, tags)
	sink.Gauge("realtime.delivered", float64(in.Delivered), CloneTags(tags))
	if in.Dropped > 0 {
		sink.Count("realtime.dropped", int64(in.Dropped), CloneTags(tags))
	}
}

// EmitConnections records the size of the live connection set.
func EmitConnections(sink statsd.Sink, n int) {
	if sink == nil {
		return
	}
	sink.Gauge("realtime.connections", float64(n), nil)
}

func withErrorClass(tags map[string]string, result string, err error) map[string]string {
	if err != nil && result == ResultError {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	return tags
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
