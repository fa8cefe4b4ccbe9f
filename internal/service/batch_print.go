package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
	apperrors "github.com/ageagekun/docqueue/internal/errors"
	"github.com/ageagekun/docqueue/internal/observability/metrics"
	"github.com/ageagekun/docqueue/internal/observability/statsd"
	"github.com/ageagekun/docqueue/internal/pathsafe"
)

const (
	// DefaultMaxMergeDocuments caps how many documents one merge job may consolidate.
	DefaultMaxMergeDocuments = 200
	// DefaultMaxMergeBytes caps the summed on-disk size of a merge job's sources.
	DefaultMaxMergeBytes int64 = 500 << 20
	// DefaultHistoryLimit is how many artifacts History returns.
	DefaultHistoryLimit = 100

	statConcurrency = 8
)

// MergeLimits bounds a merge submission.
type MergeLimits struct {
	MaxDocuments  int
	MaxTotalBytes int64
}

// BatchPrintServiceOptions groups dependencies for BatchPrintService.
type BatchPrintServiceOptions struct {
	Queue     core.QueueRepository      // Required: resolves merge sources
	Artifacts core.BatchPrintRepository // Required: artifact rows
	Jobs      core.MergeJobStore        // Required: job status store
	Merges    core.MergeQueue           // Required: hand-off to the merge worker
	Root      *pathsafe.Root            // Required: the single files root
	Limits    MergeLimits               // Optional: defaults applied when zero
	Logger    *slog.Logger              // Optional
	Metrics   statsd.Sink               // Optional
	Clock     func() time.Time          // Optional: defaults to time.Now
	NewJobID  func() string             // Optional: defaults to uuid.NewString
}

// BatchPrintService validates merge submissions and manages merge artifacts.
type BatchPrintService struct {
	queue     core.QueueRepository
	artifacts core.BatchPrintRepository
	jobs      core.MergeJobStore
	merges    core.MergeQueue
	root      *pathsafe.Root
	limits    MergeLimits
	logger    *slog.Logger
	metrics   statsd.Sink
	clock     func() time.Time
	newJobID  func() string
}

// NewBatchPrintService constructs a BatchPrintService.
func NewBatchPrintService(opts BatchPrintServiceOptions) (*BatchPrintService, error) {
	switch {
	case opts.Queue == nil:
		return nil, errors.New("QueueRepository is required")
	case opts.Artifacts == nil:
		return nil, errors.New("BatchPrintRepository is required")
	case opts.Jobs == nil:
		return nil, errors.New("MergeJobStore is required")
	case opts.Merges == nil:
		return nil, errors.New("MergeQueue is required")
	case opts.Root == nil:
		return nil, errors.New("files root is required")
	}

	limits := opts.Limits
	if limits.MaxDocuments <= 0 {
		limits.MaxDocuments = DefaultMaxMergeDocuments
	}
	if limits.MaxTotalBytes <= 0 {
		limits.MaxTotalBytes = DefaultMaxMergeBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := opts.NewJobID
	if newID == nil {
		newID = uuid.NewString
	}

	return &BatchPrintService{
		queue:     opts.Queue,
		artifacts: opts.Artifacts,
		jobs:      opts.Jobs,
		merges:    opts.Merges,
		root:      opts.Root,
		limits:    limits,
		logger:    logger.With("component", "batch_print_service"),
		metrics:   opts.Metrics,
		clock:     clock,
		newJobID:  newID,
	}, nil
}

// MustNewBatchPrintService constructs a BatchPrintService and panics on error.
func MustNewBatchPrintService(opts BatchPrintServiceOptions) *BatchPrintService {
	svc, err := NewBatchPrintService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create BatchPrintService: %v", err))
	}
	return svc
}

// Limits returns the effective submission limits.
func (s *BatchPrintService) Limits() MergeLimits { return s.limits }

// Submit validates a merge request and hands it to the merge worker. Nothing
// is mutated unless every check passes. The returned job is in the submitted state.
func (s *BatchPrintService) Submit(ctx context.Context, ids []int64) (*model.MergeJob, error) {
	if err := s.validateIDs(ids); err != nil {
		return nil, err
	}

	srcs, err := s.queue.MergeSources(ctx, ids)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if err := checkReady(ids, srcs); err != nil {
		return nil, err
	}

	resolved, err := s.resolvePaths(ctx, srcs)
	if err != nil {
		return nil, err
	}
	if err := s.checkTotalSize(ctx, resolved); err != nil {
		return nil, err
	}

	job := &model.MergeJob{
		ID:          s.newJobID(),
		Status:      model.MergeJobSubmitted,
		DocumentIDs: append([]int64(nil), ids...),
		Total:       len(ids),
		SubmittedAt: s.clock().UTC(),
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "store merge job")
	}

	if err := s.merges.Enqueue(job.Clone()); err != nil {
		job.Status = model.MergeJobFailed
		job.Error = "merge queue is full"
		finished := s.clock().UTC()
		job.FinishedAt = &finished
		if saveErr := s.jobs.Save(ctx, job); saveErr != nil {
			s.logger.WarnContext(ctx, "record rejected merge job", "job_id", job.ID, "error", saveErr)
		}
		return nil, mapStoreError(err)
	}

	metrics.EmitMergeQueueDepth(s.metrics, s.merges.Depth())
	s.logger.InfoContext(ctx, "merge job submitted", "job_id", job.ID, "documents", len(ids))
	return job, nil
}

func (s *BatchPrintService) validateIDs(ids []int64) error {
	if len(ids) == 0 {
		return apperrors.ValidationField("document_ids", "at least one document is required")
	}
	if len(ids) > s.limits.MaxDocuments {
		return apperrors.ResourceExceededf("at most %d documents can be merged at once, got %d",
			s.limits.MaxDocuments, len(ids))
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return apperrors.ValidationField("document_ids", "document ids must be positive")
		}
		if _, dup := seen[id]; dup {
			return apperrors.ValidationField("document_ids", fmt.Sprintf("document %d appears more than once", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

func checkReady(ids []int64, srcs []model.MergeSource) error {
	byID := make(map[int64]model.MergeSource, len(srcs))
	for _, src := range srcs {
		byID[src.QueueID] = src
	}
	var missing, notReady []string
	for _, id := range ids {
		src, ok := byID[id]
		switch {
		case !ok:
			missing = append(missing, fmt.Sprint(id))
		case src.Status != model.QueueStatusReadyToPrint:
			notReady = append(notReady, fmt.Sprintf("%d (%s)", id, src.Status))
		}
	}
	if len(missing) > 0 {
		return apperrors.ValidationField("document_ids", "unknown documents: "+strings.Join(missing, ", "))
	}
	if len(notReady) > 0 {
		return apperrors.ValidationField("document_ids", "documents not ready to print: "+strings.Join(notReady, ", "))
	}
	return nil
}

func (s *BatchPrintService) resolvePaths(ctx context.Context, srcs []model.MergeSource) ([]string, error) {
	out := make([]string, len(srcs))
	for i, src := range srcs {
		p, err := s.root.Resolve(src.Path)
		if err != nil {
			s.logger.WarnContext(ctx, "merge source outside files root rejected",
				"queue_id", src.QueueID, "path", src.Path, "error", err)
			return nil, apperrors.PathSecurity(fmt.Errorf("document %d: %w", src.QueueID, err))
		}
		out[i] = p
	}
	return out, nil
}

// checkTotalSize sums the on-disk size of every source. Missing files are
// skipped here; the worker records them as per-document failures.
func (s *BatchPrintService) checkTotalSize(ctx context.Context, paths []string) error {
	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statConcurrency)
	for _, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(p)
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return apperrors.Wrapf(err, apperrors.ErrCodeIOFailure, "stat %s", p)
			}
			total.Add(info.Size())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if sum := total.Load(); sum > s.limits.MaxTotalBytes {
		return apperrors.ResourceExceededf("total source size %d bytes exceeds the %d byte limit",
			sum, s.limits.MaxTotalBytes)
	}
	return nil
}

// Job returns the observable state of a merge job.
func (s *BatchPrintService) Job(ctx context.Context, id string) (*model.MergeJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ValidationField("job_id", "job id must be a uuid")
	}
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return job, nil
}

// History lists artifacts newest first and flags stale ones.
func (s *BatchPrintService) History(ctx context.Context, limit int) (*model.BatchPrintHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.artifacts.List(ctx, limit)
	if err != nil {
		return nil, mapStoreError(err)
	}
	now := s.clock()
	hist := &model.BatchPrintHistory{Items: make([]model.BatchPrintEntry, 0, len(rows))}
	for _, bp := range rows {
		stale := bp.IsStale(now)
		if stale {
			hist.StaleCount++
		}
		hist.Items = append(hist.Items, model.BatchPrintEntry{BatchPrint: *bp, IsStale: stale})
	}
	sort.SliceStable(hist.Items, func(i, j int) bool {
		return hist.Items[i].CreatedAt.After(hist.Items[j].CreatedAt)
	})
	if hist.StaleCount > 0 {
		hist.Warning = fmt.Sprintf("%d batch prints are older than %d days; consider deleting them",
			hist.StaleCount, int(model.BatchPrintStaleAfter/(24*time.Hour)))
	}
	return hist, nil
}

// Open returns the artifact and an open handle on its file. The caller closes it.
func (s *BatchPrintService) Open(ctx context.Context, id int64) (*model.BatchPrint, *os.File, error) {
	bp, err := s.artifacts.GetByID(ctx, id)
	if err != nil {
		return nil, nil, mapStoreError(err)
	}
	p, err := s.root.Resolve(bp.FilePath)
	if err != nil {
		s.logger.WarnContext(ctx, "batch print path outside files root", "batch_id", id, "path", bp.FilePath)
		return nil, nil, apperrors.PathSecurity(err)
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, apperrors.NotFoundf("batch print file %s is missing", bp.FileName)
	}
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeIOFailure, "open batch print")
	}
	return bp, f, nil
}

// Delete removes the artifact file and then its row. A file that is already
// gone does not block removing the row.
func (s *BatchPrintService) Delete(ctx context.Context, id int64) error {
	bp, err := s.artifacts.GetByID(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}
	p, err := s.root.Resolve(bp.FilePath)
	if err != nil {
		s.logger.WarnContext(ctx, "refusing to delete batch print outside files root",
			"batch_id", id, "path", bp.FilePath)
		return apperrors.PathSecurity(err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.Wrap(err, apperrors.ErrCodeIOFailure, "remove batch print file")
	}
	if err := s.artifacts.Delete(ctx, id); err != nil {
		return mapStoreError(err)
	}
	s.logger.InfoContext(ctx, "batch print deleted", "batch_id", id, "file", bp.FileName)
	return nil
}
