package model

import "time"

// Store notification channels.
const (
	ChannelQueueStatusChanged = "rpa_queue_status_changed"
	ChannelFileMovement       = "file_movement_required"
	ChannelAllTasksComplete   = "all_tasks_complete"
	// ChannelResync is synthesized by the listener after (re)connecting, since
	// notifications published while disconnected are not replayed.
	ChannelResync = "listener_resync"
)

// Live envelope types sent to browser clients.
const (
	EventConnection       = "connection"
	EventQueueUpdate      = "queue_update"
	EventAllTasksComplete = "all_tasks_complete"
	EventMergeProgress    = "batch_print_progress"
	EventMergeComplete    = "batch_print_complete"
	EventMergeError       = "batch_print_error"
	EventHeartbeat        = "heartbeat"
	EventPing             = "ping"
	EventPong             = "pong"
	EventServerShutdown   = "server_shutdown"
	EventResync           = "resync"
)

// ListenedChannels are the store channels the listener subscribes to.
func ListenedChannels() []string {
	return []string{ChannelQueueStatusChanged, ChannelFileMovement, ChannelAllTasksComplete}
}

// StatusChangedEvent is published on every committed queue transition.
type StatusChangedEvent struct {
	QueueID   int64       `json:"queue_id"`
	FileID    int64       `json:"file_id"`
	Status    QueueStatus `json:"status"`
	Error     *string     `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// FileMovementEvent asks the file mover to relocate an uploaded document.
type FileMovementEvent struct {
	QueueID int64  `json:"queue_id"`
	FileID  int64  `json:"file_id"`
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}

// AllTasksCompleteEvent is published when no item is pending or processing anymore.
type AllTasksCompleteEvent struct {
	CompletedAt time.Time `json:"completed_at"`
}

// AllTasksCompleteReport is the live envelope body for EventAllTasksComplete.
type AllTasksCompleteReport struct {
	CompletedAt time.Time  `json:"completed_at"`
	Stats       DailyStats `json:"stats"`
}

// MergeProgressEvent is emitted after each document of a merge job.
type MergeProgressEvent struct {
	JobID   string `json:"job_id"`
	QueueID int64  `json:"queue_id"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	OK      bool   `json:"ok"`
}

// MergeCompleteEvent is emitted when a merge job produced an artifact.
type MergeCompleteEvent struct {
	JobID        string `json:"job_id"`
	BatchID      int64  `json:"batch_id"`
	SuccessCount int    `json:"success_count"`
	FailedCount  int    `json:"failed_count"`
}

// MergeErrorEvent is emitted when a merge job failed as a whole.
type MergeErrorEvent struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}
