package model

import (
	"slices"
	"time"
)

// BatchPrintStaleAfter is the age after which an artifact is flagged for cleanup.
const BatchPrintStaleAfter = 60 * 24 * time.Hour

// BatchPrint is a consolidated PDF produced by one merge job.
type BatchPrint struct {
	ID            int64     `json:"id"`
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"file_path"`
	FileSize      int64     `json:"file_size"`
	PageCount     int       `json:"page_count"`
	DocumentCount int       `json:"document_count"`
	DocumentIDs   []int64   `json:"document_ids"`
	SuccessIDs    []int64   `json:"success_ids"`
	FailedIDs     []int64   `json:"failed_ids"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsStale reports whether the artifact is older than BatchPrintStaleAfter at now.
func (b *BatchPrint) IsStale(now time.Time) bool {
	return now.Sub(b.CreatedAt) > BatchPrintStaleAfter
}

// CreateBatchPrintRequest records a finished merge.
type CreateBatchPrintRequest struct {
	FileName    string
	FilePath    string
	FileSize    int64
	PageCount   int
	DocumentIDs []int64
	SuccessIDs  []int64
	FailedIDs   []int64
}

// BatchPrintHistory is the artifact list with stale bookkeeping.
type BatchPrintHistory struct {
	Items      []BatchPrintEntry `json:"items"`
	StaleCount int               `json:"stale_count"`
	Warning    string            `json:"warning,omitempty"`
}

// BatchPrintEntry decorates an artifact with its stale flag.
type BatchPrintEntry struct {
	BatchPrint
	IsStale bool `json:"is_stale"`
}

// MergeSource is a ready-to-print document resolved for merging.
type MergeSource struct {
	QueueID int64       `json:"queue_id"`
	FileID  int64       `json:"file_id"`
	Status  QueueStatus `json:"status"`
	Path    string      `json:"path"`
}

// ReadyDocument is a row of the batch print selection list.
type ReadyDocument struct {
	QueueID     int64     `json:"queue_id"`
	FileID      int64     `json:"file_id"`
	PatientID   int64     `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	FileName    string    `json:"file_name"`
	Category    string    `json:"category"`
	FilePath    string    `json:"file_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReadyDocumentSort selects the ordering of the ready document list.
type ReadyDocumentSort string

const (
	// SortByPatientName orders by patient display name.
	SortByPatientName ReadyDocumentSort = "patient_name"
	// SortByFileName orders by document file name.
	SortByFileName ReadyDocumentSort = "file_name"
	// SortByCreatedAt orders by enqueue time.
	SortByCreatedAt ReadyDocumentSort = "created_at"
)

// ReadyDocumentListOptions controls ready document listing.
type ReadyDocumentListOptions struct {
	Sort       ReadyDocumentSort
	Descending bool
}

// MergeJobStatus is the lifecycle state of a batch merge job.
type MergeJobStatus string

const (
	// MergeJobSubmitted indicates the job is queued behind the active job.
	MergeJobSubmitted MergeJobStatus = "submitted"
	// MergeJobRunning indicates the single worker is consolidating the job.
	MergeJobRunning MergeJobStatus = "running"
	// MergeJobCompleted indicates at least one document was merged.
	MergeJobCompleted MergeJobStatus = "completed"
	// MergeJobFailed indicates no document could be merged.
	MergeJobFailed MergeJobStatus = "failed"
)

// Terminal reports whether the job has finished.
func (s MergeJobStatus) Terminal() bool {
	return s == MergeJobCompleted || s == MergeJobFailed
}

// MergeJob tracks one submitted batch merge.
type MergeJob struct {
	ID           string         `json:"job_id"`
	Status       MergeJobStatus `json:"status"`
	DocumentIDs  []int64        `json:"document_ids"`
	Current      int            `json:"current"`
	Total        int            `json:"total"`
	SuccessIDs   []int64        `json:"success_ids,omitempty"`
	FailedIDs    []int64        `json:"failed_ids,omitempty"`
	BatchPrintID *int64         `json:"batch_id,omitempty"`
	Error        string         `json:"error,omitempty"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (j *MergeJob) Clone() *MergeJob {
	if j == nil {
		return nil
	}
	c := *j
	c.DocumentIDs = slices.Clone(j.DocumentIDs)
	c.SuccessIDs = slices.Clone(j.SuccessIDs)
	c.FailedIDs = slices.Clone(j.FailedIDs)
	return &c
}
