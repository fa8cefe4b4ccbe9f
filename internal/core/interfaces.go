package core

import (
	"context"
	"time"

	"github.com/ageagekun/docqueue/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not on the data layer.

// TransitionParams groups the inputs of one guarded status change.
type TransitionParams struct {
	ID         int64
	Transition model.Transition
	// ErrorMessage is written only by edges whose Transition.SetsError is true.
	ErrorMessage string
	// DocumentPath, when set on MarkReadyToPrint, becomes the document's stored path.
	DocumentPath string
}

// QueueRepository defines the queue store operations.
type QueueRepository interface {
	Transition(ctx context.Context, p TransitionParams) (*model.QueueItem, error)
	GetByID(ctx context.Context, id int64) (*model.QueueItem, error)
	ListActive(ctx context.Context) ([]*model.QueueItem, error)
	ListByStatus(ctx context.Context, statuses []model.QueueStatus, limit int) ([]*model.QueueItem, error)
	Overview(ctx context.Context, since time.Time) (*model.QueueOverview, error)
	DailyStats(ctx context.Context, since time.Time) (*model.DailyStats, error)
	MergeSources(ctx context.Context, ids []int64) ([]model.MergeSource, error)
	ReadyDocuments(ctx context.Context, opts model.ReadyDocumentListOptions) ([]model.ReadyDocument, error)
	CancelAllPending(ctx context.Context) (*model.CancelResult, error)
	Create(ctx context.Context, reqs []model.CreateQueueItemRequest) ([]*model.QueueItem, error)
	RecordMoveFailure(ctx context.Context, fileID int64, message string) ([]*model.QueueItem, error)
	Delete(ctx context.Context, id int64) error
}

// BatchPrintRepository defines artifact persistence.
type BatchPrintRepository interface {
	Create(ctx context.Context, req model.CreateBatchPrintRequest) (*model.BatchPrint, error)
	GetByID(ctx context.Context, id int64) (*model.BatchPrint, error)
	List(ctx context.Context, limit int) ([]*model.BatchPrint, error)
	Delete(ctx context.Context, id int64) error
}

// DocumentRepository reads collaborator document records.
type DocumentRepository interface {
	GetByID(ctx context.Context, fileID int64) (*model.Document, error)
}

// MergeJobStore keeps the observable state of merge jobs.
type MergeJobStore interface {
	Save(ctx context.Context, job *model.MergeJob) error
	Get(ctx context.Context, id string) (*model.MergeJob, error)
}

// MergeQueue accepts validated merge jobs for the single merge worker.
type MergeQueue interface {
	// Enqueue returns ErrMergeQueueFull instead of blocking when the queue is at capacity.
	Enqueue(job *model.MergeJob) error
	Depth() int
}

// EventPublisher delivers typed envelopes to live clients.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}
