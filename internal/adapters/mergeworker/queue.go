// Package mergeworker runs batch PDF merge jobs one at a time in submission order.
package mergeworker

import (
	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
)

// DefaultQueueSize is the number of jobs that may wait behind the running one.
const DefaultQueueSize = 16

// Queue is the bounded hand-off between job submission and the single worker.
// Submissions never block; a full queue is reported to the caller.
type Queue struct {
	jobs chan *model.MergeJob
}

// NewQueue creates a queue holding at most size waiting jobs.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{jobs: make(chan *model.MergeJob, size)}
}

// Enqueue adds a job or returns core.ErrMergeQueueFull.
func (q *Queue) Enqueue(job *model.MergeJob) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return core.ErrMergeQueueFull
	}
}

// Depth returns the number of jobs waiting.
func (q *Queue) Depth() int { return len(q.jobs) }

// Capacity returns the maximum number of waiting jobs.
func (q *Queue) Capacity() int { return cap(q.jobs) }

var _ core.MergeQueue = (*Queue)(nil)
