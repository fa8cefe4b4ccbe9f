package mergeworker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
	apperrors "github.com/ageagekun/docqueue/internal/errors"
	"github.com/ageagekun/docqueue/internal/observability/metrics"
	"github.com/ageagekun/docqueue/internal/observability/statsd"
	"github.com/ageagekun/docqueue/internal/pathsafe"
	"github.com/ageagekun/docqueue/internal/pdfmerge"
)

const (
	// DefaultYieldEvery is how many documents are processed between scheduler yields.
	DefaultYieldEvery = 10

	// settleTimeout bounds store writes made after the worker context ended.
	settleTimeout = 30 * time.Second
)

// Items is the subset of queue operations the worker drives.
type Items interface {
	MergeSources(ctx context.Context, ids []int64) ([]model.MergeSource, error)
	StartMerging(ctx context.Context, id int64) (*model.QueueItem, error)
	MarkDone(ctx context.Context, id int64) (*model.QueueItem, error)
	AnnotateMergeError(ctx context.Context, id int64, message string) (*model.QueueItem, error)
}

// WorkerOptions configures the merge worker.
type WorkerOptions struct {
	Queue     *Queue                    // Required: the bounded job queue this worker drains
	Items     Items                     // Required: queue transitions
	Artifacts core.BatchPrintRepository // Required: artifact rows
	Jobs      core.MergeJobStore        // Required: observable job state
	Events    core.EventPublisher       // Optional: live progress events
	Root      *pathsafe.Root            // Required: sources must resolve inside it
	OutputDir string                    // Required: where artifacts are written, inside Root

	YieldEvery int           // documents between runtime.Gosched calls
	LockRetry  time.Duration // retry delay while waiting for the output directory lock
	Logger     *slog.Logger
	Metrics    statsd.Sink
	Clock      func() time.Time
}

// Worker is the single consumer of a Queue.
type Worker struct {
	queue      *Queue
	items      Items
	artifacts  core.BatchPrintRepository
	jobs       core.MergeJobStore
	events     core.EventPublisher
	root       *pathsafe.Root
	outputDir  string
	yieldEvery int
	lockRetry  time.Duration
	logger     *slog.Logger
	metrics    statsd.Sink
	clock      func() time.Time
}

// NewWorker validates options and prepares the output directory.
func NewWorker(opts WorkerOptions) (*Worker, error) {
	switch {
	case opts.Queue == nil:
		return nil, errors.New("merge queue is required")
	case opts.Items == nil:
		return nil, errors.New("queue items are required")
	case opts.Artifacts == nil:
		return nil, errors.New("BatchPrintRepository is required")
	case opts.Jobs == nil:
		return nil, errors.New("MergeJobStore is required")
	case opts.Root == nil:
		return nil, errors.New("files root is required")
	case opts.OutputDir == "":
		return nil, errors.New("output directory is required")
	}

	if err := os.MkdirAll(opts.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	outDir, err := opts.Root.Resolve(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}

	w := &Worker{
		queue:      opts.Queue,
		items:      opts.Items,
		artifacts:  opts.Artifacts,
		jobs:       opts.Jobs,
		events:     opts.Events,
		root:       opts.Root,
		outputDir:  outDir,
		yieldEvery: opts.YieldEvery,
		lockRetry:  opts.LockRetry,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
	}
	if w.yieldEvery <= 0 {
		w.yieldEvery = DefaultYieldEvery
	}
	if w.lockRetry <= 0 {
		w.lockRetry = 200 * time.Millisecond
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("component", "merge_worker")
	if w.clock == nil {
		w.clock = time.Now
	}
	return w, nil
}

// Run processes jobs until ctx is canceled. Jobs still waiting at shutdown are
// marked failed; their documents were never claimed and stay ready_to_print.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "starting merge worker", "output_dir", w.outputDir, "queue_capacity", w.queue.Capacity())
	for {
		select {
		case <-ctx.Done():
			w.abandonQueued(ctx)
			w.logger.InfoContext(ctx, "merge worker stopped")
			return nil
		case job := <-w.queue.jobs:
			metrics.EmitMergeQueueDepth(w.metrics, w.queue.Depth())
			w.process(ctx, job)
		}
	}
}

func (w *Worker) abandonQueued(ctx context.Context) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	for {
		select {
		case job := <-w.queue.jobs:
			w.failJob(sctx, job, "server shutting down before the merge started")
		default:
			return
		}
	}
}

// process runs one job to completion. Per-document failures are recorded on
// the document and never abort the job.
func (w *Worker) process(ctx context.Context, job *model.MergeJob) {
	started := w.clock()
	startedUTC := started.UTC()
	job.Status = model.MergeJobRunning
	job.StartedAt = &startedUTC
	job.Total = len(job.DocumentIDs)
	w.saveJob(ctx, job)
	w.logger.InfoContext(ctx, "merge job started", "job_id", job.ID, "documents", job.Total)

	srcs, err := w.items.MergeSources(ctx, job.DocumentIDs)
	if err != nil {
		w.logger.ErrorContext(ctx, "resolve merge sources", "job_id", job.ID, "error", err)
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
		defer cancel()
		w.failJob(sctx, job, "could not load documents")
		return
	}
	byID := make(map[int64]model.MergeSource, len(srcs))
	for _, src := range srcs {
		byID[src.QueueID] = src
	}

	merger := pdfmerge.NewMerger()
	interrupted := false
	for i, id := range job.DocumentIDs {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		ok := w.mergeOne(ctx, job.ID, id, byID, merger)
		if ok {
			job.SuccessIDs = append(job.SuccessIDs, id)
		} else {
			job.FailedIDs = append(job.FailedIDs, id)
		}
		job.Current = i + 1
		w.publish(ctx, model.EventMergeProgress, model.MergeProgressEvent{
			JobID:   job.ID,
			QueueID: id,
			Current: job.Current,
			Total:   job.Total,
			OK:      ok,
		})
		w.saveJob(ctx, job)
		if job.Current%w.yieldEvery == 0 {
			runtime.Gosched()
		}
	}

	// The loop is done; finishing must not be cut short by shutdown.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if interrupted {
		w.annotateAll(sctx, job.SuccessIDs, "merge interrupted by server shutdown")
		job.FailedIDs = append(job.FailedIDs, job.SuccessIDs...)
		job.SuccessIDs = nil
		w.failJob(sctx, job, "merge interrupted by server shutdown")
		w.emitJobMetric(job, 0, started)
		return
	}

	w.finalize(sctx, job, merger, started)
}

// mergeOne claims one document, loads it, and appends its pages.
func (w *Worker) mergeOne(
	ctx context.Context,
	jobID string,
	id int64,
	byID map[int64]model.MergeSource,
	merger *pdfmerge.Merger,
) bool {
	logger := w.logger.With("job_id", jobID, "queue_id", id)

	src, ok := byID[id]
	if !ok {
		logger.WarnContext(ctx, "merge document no longer exists")
		return false
	}
	if _, err := w.items.StartMerging(ctx, id); err != nil {
		// Not claimed, so the item is not ours to annotate.
		if apperrors.IsStateConflict(err) {
			logger.WarnContext(ctx, "merge document changed status after submission")
		} else {
			logger.ErrorContext(ctx, "claim merge document", "error", err)
		}
		return false
	}

	p, err := w.root.Resolve(src.Path)
	if err != nil {
		logger.WarnContext(ctx, "merge source outside files root rejected", "path", src.Path, "error", err)
		w.annotate(ctx, id, "access denied: file is outside the document root")
		return false
	}

	data, err := os.ReadFile(p)
	if err != nil {
		msg := "could not read file: " + filepath.Base(p)
		if errors.Is(err, fs.ErrNotExist) {
			msg = "file not found: " + filepath.Base(p)
		}
		logger.WarnContext(ctx, "merge source unreadable", "path", p, "error", err)
		w.annotate(ctx, id, msg)
		return false
	}

	pages, err := merger.Append(data)
	if err != nil {
		logger.WarnContext(ctx, "merge source rejected", "path", p, "error", err)
		msg := "corrupt or unreadable PDF: " + filepath.Base(p)
		if errors.Is(err, pdfmerge.ErrNotPDF) {
			msg = "not a PDF file: " + filepath.Base(p)
		}
		w.annotate(ctx, id, msg)
		return false
	}
	logger.DebugContext(ctx, "merge document appended", "pages", pages)
	return true
}

// annotate records msg on a claimed document. A claimed document must not be
// left in merging without a reason, so shutdown does not cancel the write.
func (w *Worker) annotate(ctx context.Context, id int64, msg string) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	if _, err := w.items.AnnotateMergeError(actx, id, msg); err != nil {
		w.logger.ErrorContext(ctx, "record merge error", "queue_id", id, "error", err)
	}
}

func (w *Worker) annotateAll(ctx context.Context, ids []int64, msg string) {
	for _, id := range ids {
		w.annotate(ctx, id, msg)
	}
}

// failJob and finalize publish the terminal event before storing the terminal
// state, so a job observed as finished has already been announced.
func (w *Worker) failJob(ctx context.Context, job *model.MergeJob, msg string) {
	finished := w.clock().UTC()
	job.Status = model.MergeJobFailed
	job.Error = msg
	job.FinishedAt = &finished
	w.publish(ctx, model.EventMergeError, model.MergeErrorEvent{JobID: job.ID, Message: msg})
	w.saveJob(ctx, job)
	w.logger.WarnContext(ctx, "merge job failed", "job_id", job.ID, "reason", msg,
		"failed", len(job.FailedIDs))
}

func (w *Worker) saveJob(ctx context.Context, job *model.MergeJob) {
	if err := w.jobs.Save(ctx, job); err != nil {
		w.logger.WarnContext(ctx, "save merge job state", "job_id", job.ID, "error", err)
	}
}

func (w *Worker) publish(ctx context.Context, eventType string, data any) {
	if w.events == nil {
		return
	}
	if err := w.events.Publish(ctx, eventType, data); err != nil {
		w.logger.WarnContext(ctx, "publish merge event", "type", eventType, "error", err)
	}
}

func (w *Worker) emitJobMetric(job *model.MergeJob, pages int, started time.Time) {
	metrics.EmitMergeJob(w.metrics, metrics.MergeJobMetric{
		Status:    string(job.Status),
		Documents: job.Total,
		Succeeded: len(job.SuccessIDs),
		Failed:    len(job.FailedIDs),
		Pages:     pages,
		Duration:  w.clock().Sub(started),
	})
}
