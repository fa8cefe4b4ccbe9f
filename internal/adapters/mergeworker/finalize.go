package mergeworker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/ageagekun/docqueue/internal/domain/model"
	"github.com/ageagekun/docqueue/internal/pdfmerge"
)

const lockFileName = ".merge.lock"

// errOutputLocked is returned when another process holds the output directory.
var errOutputLocked = errors.New("merge output directory is locked by another process")

// OutputFileName names an artifact after its finish time and job handle.
func OutputFileName(finished time.Time, jobID string) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("batch_%s_%s.pdf", finished.Format("20060102_150405"), short)
}

// finalize writes the artifact and completes the job, or fails it when no
// document could be merged. Documents are marked done only after the artifact
// row is committed.
func (w *Worker) finalize(ctx context.Context, job *model.MergeJob, merger *pdfmerge.Merger, started time.Time) {
	if len(job.SuccessIDs) == 0 {
		w.failJob(ctx, job, fmt.Sprintf("none of the %d documents could be merged", job.Total))
		w.emitJobMetric(job, 0, started)
		return
	}

	bp, err := w.writeArtifact(ctx, job, merger)
	if err != nil {
		w.logger.ErrorContext(ctx, "write merge artifact", "job_id", job.ID, "error", err)
		w.annotateAll(ctx, job.SuccessIDs, "merge output could not be saved")
		job.FailedIDs = append(job.FailedIDs, job.SuccessIDs...)
		job.SuccessIDs = nil
		w.failJob(ctx, job, "merge output could not be saved")
		w.emitJobMetric(job, 0, started)
		return
	}

	for _, id := range job.SuccessIDs {
		if _, err := w.items.MarkDone(ctx, id); err != nil {
			w.logger.ErrorContext(ctx, "mark merged document done", "job_id", job.ID, "queue_id", id, "error", err)
		}
	}

	finished := w.clock().UTC()
	job.Status = model.MergeJobCompleted
	job.BatchPrintID = &bp.ID
	job.FinishedAt = &finished
	w.publish(ctx, model.EventMergeComplete, model.MergeCompleteEvent{
		JobID:        job.ID,
		BatchID:      bp.ID,
		SuccessCount: len(job.SuccessIDs),
		FailedCount:  len(job.FailedIDs),
	})
	w.saveJob(ctx, job)
	w.emitJobMetric(job, bp.PageCount, started)
	w.logger.InfoContext(ctx, "merge job completed",
		"job_id", job.ID,
		"batch_id", bp.ID,
		"file", bp.FileName,
		"pages", bp.PageCount,
		"succeeded", len(job.SuccessIDs),
		"failed", len(job.FailedIDs),
	)
}

// writeArtifact writes the merged document under the output directory lock
// and records it. The file appears under its final name only when complete.
func (w *Worker) writeArtifact(
	ctx context.Context,
	job *model.MergeJob,
	merger *pdfmerge.Merger,
) (*model.BatchPrint, error) {
	lock := flock.New(filepath.Join(w.outputDir, lockFileName))
	locked, err := lock.TryLockContext(ctx, w.lockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock output directory: %w", err)
	}
	if !locked {
		return nil, errOutputLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			w.logger.WarnContext(ctx, "unlock output directory", "error", err)
		}
	}()

	name := OutputFileName(w.clock(), job.ID)
	final := filepath.Join(w.outputDir, name)

	tmp, err := os.CreateTemp(w.outputDir, ".batch-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	size, err := merger.WriteTo(tmp)
	if err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write merged pdf: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("sync merged pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close merged pdf: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return nil, fmt.Errorf("rename merged pdf: %w", err)
	}
	committed = true

	bp, err := w.artifacts.Create(ctx, model.CreateBatchPrintRequest{
		FileName:    name,
		FilePath:    final,
		FileSize:    size,
		PageCount:   merger.Pages(),
		DocumentIDs: job.DocumentIDs,
		SuccessIDs:  job.SuccessIDs,
		FailedIDs:   job.FailedIDs,
	})
	if err != nil {
		if rmErr := os.Remove(final); rmErr != nil {
			w.logger.WarnContext(ctx, "remove unrecorded artifact", "path", final, "error", rmErr)
		}
		return nil, fmt.Errorf("record batch print: %w", err)
	}
	return bp, nil
}
