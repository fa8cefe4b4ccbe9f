package mergeworker

import (
	"context"
	"sync"
	"time"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
)

// DefaultJobRetention is how long finished jobs stay queryable.
const DefaultJobRetention = 24 * time.Hour

// MemoryJobStore keeps merge job state in process memory. It is used when no
// Redis is configured; jobs are lost on restart.
type MemoryJobStore struct {
	mu        sync.RWMutex
	jobs      map[string]*model.MergeJob
	retention time.Duration
	now       func() time.Time
}

// NewMemoryJobStore creates an empty store. Finished jobs older than
// retention are pruned on write.
func NewMemoryJobStore(retention time.Duration) *MemoryJobStore {
	if retention <= 0 {
		retention = DefaultJobRetention
	}
	return &MemoryJobStore{
		jobs:      make(map[string]*model.MergeJob),
		retention: retention,
		now:       time.Now,
	}
}

// Save stores a copy of job.
func (s *MemoryJobStore) Save(_ context.Context, job *model.MergeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	s.pruneLocked()
	return nil
}

// Get returns a copy of the stored job.
func (s *MemoryJobStore) Get(_ context.Context, id string) (*model.MergeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, core.ErrMergeJobNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryJobStore) pruneLocked() {
	cutoff := s.now().Add(-s.retention)
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}

var _ core.MergeJobStore = (*MemoryJobStore)(nil)
