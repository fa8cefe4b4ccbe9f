// Package redis provides Redis-backed adapters shared by the service processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
)

// DefaultJobTTL bounds how long a finished merge job stays queryable.
const DefaultJobTTL = 24 * time.Hour

// JobStore keeps merge job state in Redis so any HTTP process can answer
// status queries for jobs run by the merge worker process.
type JobStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// JobStoreOptions configure a JobStore.
type JobStoreOptions struct {
	Prefix string
	TTL    time.Duration
}

// NewJobStore creates a Redis-based merge job store.
func NewJobStore(client redis.UniversalClient, opts JobStoreOptions) *JobStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "docqueue:merge_job:"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &JobStore{client: client, prefix: prefix, ttl: ttl}
}

// Save writes the job snapshot and refreshes its TTL.
func (s *JobStore) Save(ctx context.Context, job *model.MergeJob) error {
	if job == nil || job.ID == "" {
		return errors.New("merge job ID cannot be empty")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal merge job: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+job.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the stored job or core.ErrMergeJobNotFound.
func (s *JobStore) Get(ctx context.Context, id string) (*model.MergeJob, error) {
	if id == "" {
		return nil, core.ErrMergeJobNotFound
	}
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrMergeJobNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var job model.MergeJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal merge job: %w", err)
	}
	return &job, nil
}

var _ core.MergeJobStore = (*JobStore)(nil)
