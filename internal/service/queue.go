package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
	apperrors "github.com/ageagekun/docqueue/internal/errors"
	"github.com/ageagekun/docqueue/internal/observability/metrics"
	"github.com/ageagekun/docqueue/internal/observability/statsd"
	"github.com/ageagekun/docqueue/internal/pathsafe"
)

const (
	// DefaultFailureMessage is recorded when the agent reports a failure without details.
	DefaultFailureMessage = "Unknown error"
	// MaxCreateBatch caps how many documents one create-batch request may enqueue.
	MaxCreateBatch = 500
	// OverviewWindow is the trailing window counted by Overview.
	OverviewWindow = 24 * time.Hour
)

// QueueServiceOptions groups dependencies for QueueService.
type QueueServiceOptions struct {
	Repo    core.QueueRepository // Required: queue store
	Root    *pathsafe.Root       // Required: recorded document paths must stay inside it
	Logger  *slog.Logger         // Optional: structured logger
	Metrics statsd.Sink          // Optional: metrics sink
	Clock   func() time.Time     // Optional: defaults to time.Now
}

// QueueService exposes one operation per legal edge of the queue state graph
// plus the enqueue, listing, and operator operations around it.
type QueueService struct {
	repo    core.QueueRepository
	root    *pathsafe.Root
	logger  *slog.Logger
	metrics statsd.Sink
	clock   func() time.Time
}

// NewQueueService constructs a QueueService.
func NewQueueService(opts QueueServiceOptions) (*QueueService, error) {
	if opts.Repo == nil {
		return nil, errors.New("QueueRepository is required")
	}
	if opts.Root == nil {
		return nil, errors.New("files root is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &QueueService{
		repo:    opts.Repo,
		root:    opts.Root,
		logger:  logger.With("component", "queue_service"),
		metrics: opts.Metrics,
		clock:   clock,
	}, nil
}

// MustNewQueueService constructs a QueueService and panics on error.
func MustNewQueueService(opts QueueServiceOptions) *QueueService {
	svc, err := NewQueueService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create QueueService: %v", err))
	}
	return svc
}

// StartProcessing moves a pending item to processing (agent picked it up).
func (s *QueueService) StartProcessing(ctx context.Context, id int64) (*model.QueueItem, error) {
	return s.apply(ctx, core.TransitionParams{ID: id, Transition: model.TransitionStartProcessing})
}

// MarkUploaded moves a processing item to uploaded and requests its file move.
func (s *QueueService) MarkUploaded(ctx context.Context, id int64) (*model.QueueItem, error) {
	return s.apply(ctx, core.TransitionParams{ID: id, Transition: model.TransitionMarkUploaded})
}

// Complete is the legacy name for MarkUploaded. It performs exactly the same edge.
func (s *QueueService) Complete(ctx context.Context, id int64) (*model.QueueItem, error) {
	s.logger.WarnContext(ctx, "deprecated complete transition used; call uploaded instead", "queue_id", id)
	return s.MarkUploaded(ctx, id)
}

// MarkFailed moves a processing item to failed with the agent's error message.
func (s *QueueService) MarkFailed(ctx context.Context, id int64, message string) (*model.QueueItem, error) {
	if strings.TrimSpace(message) == "" {
		message = DefaultFailureMessage
	}
	return s.apply(ctx, core.TransitionParams{ID: id, Transition: model.TransitionMarkFailed, ErrorMessage: message})
}

// MarkReadyToPrint moves an uploaded item to ready_to_print. A non-empty
// newPath replaces the document's stored location; it must resolve inside the
// files root, and the resolved form is what gets stored.
func (s *QueueService) MarkReadyToPrint(ctx context.Context, id int64, newPath string) (*model.QueueItem, error) {
	newPath = strings.TrimSpace(newPath)
	if newPath != "" {
		resolved, err := s.root.Resolve(newPath)
		if err != nil {
			s.logger.WarnContext(ctx, "rejected document path outside files root",
				"queue_id", id, "path", newPath, "error", err)
			return nil, apperrors.PathSecurity(err)
		}
		newPath = resolved
	}
	return s.apply(ctx, core.TransitionParams{
		ID:           id,
		Transition:   model.TransitionMarkReadyToPrint,
		DocumentPath: newPath,
	})
}

// StartMerging claims a ready item for a merge job.
func (s *QueueService) StartMerging(ctx context.Context, id int64) (*model.QueueItem, error) {
	return s.apply(ctx, core.TransitionParams{ID: id, Transition: model.TransitionStartMerging})
}

// MarkDone finishes a merged item.
func (s *QueueService) MarkDone(ctx context.Context, id int64) (*model.QueueItem, error) {
	return s.apply(ctx, core.TransitionParams{ID: id, Transition: model.TransitionMarkDone})
}

// AnnotateMergeError records why an item could not be merged. It stays in merging.
func (s *QueueService) AnnotateMergeError(ctx context.Context, id int64, message string) (*model.QueueItem, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.ValidationField("error_message", "error message is required")
	}
	return s.apply(ctx, core.TransitionParams{ID: id, Transition: model.TransitionAnnotateMergeFail, ErrorMessage: message})
}

// Cancel moves a pending item to canceled.
func (s *QueueService) Cancel(ctx context.Context, id int64) (*model.QueueItem, error) {
	return s.apply(ctx, core.TransitionParams{ID: id, Transition: model.TransitionCancel})
}

func (s *QueueService) apply(ctx context.Context, p core.TransitionParams) (*model.QueueItem, error) {
	if p.ID <= 0 {
		return nil, apperrors.ValidationField("id", "queue id must be positive")
	}
	start := s.clock()
	item, err := s.repo.Transition(ctx, p)
	m := metrics.TransitionMetric{Transition: p.Transition.Name(), Duration: s.clock().Sub(start)}

	if err != nil {
		mapped := mapStoreError(err)
		m.Err = mapped
		if apperrors.IsStateConflict(mapped) {
			m.Result = metrics.ResultRejected
			s.logger.DebugContext(ctx, "transition rejected", "queue_id", p.ID, "transition", p.Transition.Name())
		} else {
			m.Result = metrics.ResultError
			if !apperrors.IsNotFound(mapped) {
				s.logger.ErrorContext(ctx, "transition failed",
					"queue_id", p.ID, "transition", p.Transition.Name(), "error", err)
			}
		}
		metrics.EmitTransition(s.metrics, m)
		return nil, mapped
	}

	m.Result = metrics.ResultSuccess
	metrics.EmitTransition(s.metrics, m)
	s.logger.DebugContext(ctx, "transition applied", "queue_id", item.ID, "transition", p.Transition.Name(),
		"status", item.Status)
	return item, nil
}

// Create enqueues documents as pending items, all or none.
func (s *QueueService) Create(ctx context.Context, reqs []model.CreateQueueItemRequest) ([]*model.QueueItem, error) {
	if len(reqs) == 0 {
		return nil, apperrors.ValidationField("items", "at least one document is required")
	}
	if len(reqs) > MaxCreateBatch {
		return nil, apperrors.ResourceExceededf("at most %d documents can be enqueued at once", MaxCreateBatch)
	}
	seen := make(map[int64]struct{}, len(reqs))
	for _, r := range reqs {
		if r.FileID <= 0 {
			return nil, apperrors.ValidationField("file_id", "file_id must be positive")
		}
		if _, dup := seen[r.FileID]; dup {
			return nil, apperrors.ValidationField("file_id", fmt.Sprintf("file_id %d appears more than once", r.FileID))
		}
		seen[r.FileID] = struct{}{}
		if r.Payload == nil && r.PatientID < 0 {
			return nil, apperrors.ValidationField("patient_id", "patient_id must not be negative")
		}
	}

	items, err := s.repo.Create(ctx, reqs)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.logger.InfoContext(ctx, "documents enqueued", "count", len(items))
	return items, nil
}

// Get returns one item.
func (s *QueueService) Get(ctx context.Context, id int64) (*model.QueueItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return item, nil
}

// Pending returns the board of active items.
func (s *QueueService) Pending(ctx context.Context) ([]*model.QueueItem, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if items == nil {
		items = []*model.QueueItem{}
	}
	return items, nil
}

// ListByStatus returns items in the given statuses, oldest first.
func (s *QueueService) ListByStatus(ctx context.Context, statuses []model.QueueStatus) ([]*model.QueueItem, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, apperrors.ValidationField("status", fmt.Sprintf("unknown status %q", st))
		}
	}
	items, err := s.repo.ListByStatus(ctx, statuses, 0)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return items, nil
}

// Overview counts items per status over the last 24 hours.
func (s *QueueService) Overview(ctx context.Context) (*model.QueueOverview, error) {
	ov, err := s.repo.Overview(ctx, s.clock().Add(-OverviewWindow))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return ov, nil
}

// DailyStats summarizes outcomes of items created since local midnight.
func (s *QueueService) DailyStats(ctx context.Context) (*model.DailyStats, error) {
	now := s.clock()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	st, err := s.repo.DailyStats(ctx, midnight)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return st, nil
}

// CancelAll cancels every pending item.
func (s *QueueService) CancelAll(ctx context.Context) (*model.CancelResult, error) {
	res, err := s.repo.CancelAllPending(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	metrics.EmitTransition(s.metrics, metrics.TransitionMetric{
		Transition: model.TransitionCancel.Name() + "_all",
		Result:     metrics.ResultSuccess,
	})
	s.logger.InfoContext(ctx, "pending items canceled", "count", res.Count)
	return res, nil
}

// Delete removes an item unless it is processing or merging.
func (s *QueueService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err)
	}
	s.logger.InfoContext(ctx, "queue item deleted", "queue_id", id)
	return nil
}

// RecordMoveFailure annotates the items of a document whose file could not be moved.
func (s *QueueService) RecordMoveFailure(ctx context.Context, fileID int64, message string) error {
	if _, err := s.repo.RecordMoveFailure(ctx, fileID, message); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// MergeSources resolves queue ids to their status and stored path.
func (s *QueueService) MergeSources(ctx context.Context, ids []int64) ([]model.MergeSource, error) {
	srcs, err := s.repo.MergeSources(ctx, ids)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return srcs, nil
}

// ReadyDocuments lists ready_to_print documents for batch selection.
func (s *QueueService) ReadyDocuments(ctx context.Context, sort, order string) ([]model.ReadyDocument, error) {
	opts := model.ReadyDocumentListOptions{Sort: model.SortByCreatedAt}
	switch model.ReadyDocumentSort(sort) {
	case "":
	case model.SortByPatientName, model.SortByFileName, model.SortByCreatedAt:
		opts.Sort = model.ReadyDocumentSort(sort)
	default:
		return nil, apperrors.ValidationField("sort", "sort must be patient_name, file_name, or created_at")
	}
	switch strings.ToLower(order) {
	case "", "asc":
	case "desc":
		opts.Descending = true
	default:
		return nil, apperrors.ValidationField("order", "order must be asc or desc")
	}

	docs, err := s.repo.ReadyDocuments(ctx, opts)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if docs == nil {
		docs = []model.ReadyDocument{}
	}
	return docs, nil
}
