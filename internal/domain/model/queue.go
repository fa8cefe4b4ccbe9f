// Package model defines the core data types shared by the queue, merge, and realtime layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// QueueStatus is the lifecycle state of a queue item.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type QueueStatus string

const (
	// QueueStatusPending indicates the document is waiting for the upload agent.
	QueueStatusPending QueueStatus = "pending"
	// QueueStatusProcessing indicates the upload agent has claimed the document.
	QueueStatusProcessing QueueStatus = "processing"
	// QueueStatusUploaded indicates the upload agent finished and the file awaits relocation.
	QueueStatusUploaded QueueStatus = "uploaded"
	// QueueStatusReadyToPrint indicates the file is in its final location and can be merged.
	QueueStatusReadyToPrint QueueStatus = "ready_to_print"
	// QueueStatusMerging indicates a batch merge has claimed the document.
	QueueStatusMerging QueueStatus = "merging"
	// QueueStatusDone indicates the document was merged into a batch print.
	QueueStatusDone QueueStatus = "done"
	// QueueStatusFailed indicates the upload agent reported a failure.
	QueueStatusFailed QueueStatus = "failed"
	// QueueStatusCanceled indicates an operator canceled the document before processing.
	QueueStatusCanceled QueueStatus = "canceled"
)

// AllQueueStatuses lists every status in lifecycle order.
func AllQueueStatuses() []QueueStatus {
	return []QueueStatus{
		QueueStatusPending,
		QueueStatusProcessing,
		QueueStatusUploaded,
		QueueStatusReadyToPrint,
		QueueStatusMerging,
		QueueStatusDone,
		QueueStatusFailed,
		QueueStatusCanceled,
	}
}

// ActiveQueueStatuses are the statuses shown on the pending board.
func ActiveQueueStatuses() []QueueStatus {
	return []QueueStatus{
		QueueStatusPending,
		QueueStatusProcessing,
		QueueStatusUploaded,
		QueueStatusReadyToPrint,
	}
}

// Valid returns true if the status is one of the known lifecycle states.
func (s QueueStatus) Valid() bool {
	switch s {
	case QueueStatusPending, QueueStatusProcessing, QueueStatusUploaded, QueueStatusReadyToPrint,
		QueueStatusMerging, QueueStatusDone, QueueStatusFailed, QueueStatusCanceled:
		return true
	default:
		return false
	}
}

// InFlight reports whether a worker currently owns the item. In-flight items cannot be deleted.
func (s QueueStatus) InFlight() bool {
	return s == QueueStatusProcessing || s == QueueStatusMerging
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *QueueStatus) UnmarshalText(text []byte) error {
	v := QueueStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid QueueStatus: %q", v)
	}
	*s = v
	return nil
}

// QueuePayload is the document snapshot captured when the item is enqueued.
type QueuePayload struct {
	FileName    string `json:"file_name"`
	Category    string `json:"category"`
	Pass        string `json:"pass"`
	BaseDir     string `json:"base_dir"`
	PatientName string `json:"patient_name"`
}

// BaseDirOf returns the directory portion of a stored document path.
// Paths written by the desktop agent use backslashes, so both separators are accepted.
func BaseDirOf(path string) string {
	i := strings.LastIndexAny(path, `/\`)
	if i < 0 {
		return ""
	}
	return path[:i]
}

// UploadedPath is where the file mover relocates a document after upload:
// an "uploaded" folder next to the original file, using the original separator.
func UploadedPath(p QueuePayload) string {
	base := p.BaseDir
	if base == "" {
		base = BaseDirOf(p.Pass)
	}
	sep := "/"
	if strings.Contains(base, `\`) {
		sep = `\`
	}
	name := p.FileName
	if name == "" {
		name = p.Pass[strings.LastIndexAny(p.Pass, `/\`)+1:]
	}
	if base == "" {
		return "uploaded" + sep + name
	}
	return base + sep + "uploaded" + sep + name
}

// QueueItem is one document's progress through upload and print.
type QueueItem struct {
	ID           int64        `json:"id"`
	FileID       int64        `json:"file_id"`
	PatientID    int64        `json:"patient_id"`
	Payload      QueuePayload `json:"payload"`
	Status       QueueStatus  `json:"status"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CreateQueueItemRequest enqueues one document. A nil Payload is filled from the documents table.
type CreateQueueItemRequest struct {
	FileID    int64         `json:"file_id"`
	PatientID int64         `json:"patient_id"`
	Payload   *QueuePayload `json:"payload,omitempty"`
}

// QueueOverview counts items per status over a trailing window.
type QueueOverview struct {
	Since  time.Time           `json:"since"`
	Counts map[QueueStatus]int `json:"counts"`
	Total  int                 `json:"total"`
}

// CancelResult reports the outcome of canceling every pending item.
type CancelResult struct {
	Count int     `json:"canceled_count"`
	IDs   []int64 `json:"canceled_ids"`
}

// DailyStats summarizes queue outcomes for the all-tasks-complete report.
type DailyStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}
