package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/ageagekun/docqueue/internal/errors"
	"github.com/ageagekun/docqueue/internal/observability/statsd"
)

func TestEmitTransition(t *testing.T) {
	rec := &statsd.Recorder{}
	EmitTransition(rec, TransitionMetric{
		Transition: "mark_uploaded",
		Result:     ResultError,
		Duration:   2 * time.Millisecond,
		Err:        apperrors.StateConflictf("moved"),
	})

	assert.Equal(t, []string{
		"queue.transition:1|c|#error_class:state_conflict,result:error,transition:mark_uploaded",
		"queue.transition.duration:2|ms|#error_class:state_conflict,result:error,transition:mark_uploaded",
	}, rec.Lines())
}

func TestEmitTransitionSkipsErrorClassOnSuccess(t *testing.T) {
	rec := &statsd.Recorder{}
	EmitTransition(rec, TransitionMetric{Transition: "cancel", Result: ResultSuccess, Err: errors.New("ignored")})
	assert.Equal(t, []string{"queue.transition:1|c|#result:success,transition:cancel"}, rec.Lines())
}

func TestEmitMergeJob(t *testing.T) {
	rec := &statsd.Recorder{}
	EmitMergeJob(rec, MergeJobMetric{Status: "completed", Documents: 3, Succeeded: 2, Failed: 1, Pages: 7})
	assert.Equal(t, []string{
		"merge.job:1|c|#status:completed",
		"merge.documents.succeeded:2|c|#status:completed",
		"merge.documents.failed:1|c|#status:completed",
		"merge.pages:7|g|#status:completed",
	}, rec.Lines())
}

func TestEmitBroadcast(t *testing.T) {
	rec := &statsd.Recorder{}
	EmitBroadcast(rec, BroadcastMetric{Type: "queue_update", Delivered: 2, Dropped: 1})
	assert.Equal(t, []string{
		"realtime.broadcast:1|c|#type:queue_update",
		"realtime.delivered:2|g|#type:queue_update",
		"realtime.dropped:1|c|#type:queue_update",
	}, rec.Lines())
}

func TestNilSinkIsNoop(t *testing.T) {
	EmitTransition(nil, TransitionMetric{})
	EmitMergeJob(nil, MergeJobMetric{})
	EmitMergeQueueDepth(nil, 1)
	EmitFileMove(nil, ResultSuccess, nil)
	EmitBroadcast(nil, BroadcastMetric{})
	EmitConnections(nil, 1)
}
