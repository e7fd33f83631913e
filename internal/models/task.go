package models

import "time"

// Notify task types handled by the background worker.
const (
	TaskTypeReceipt      = "receipt"
	TaskTypeMirror       = "mirror_booking"
	TaskTypeMirrorStatus = "mirror_status"
)

// Notify task states.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusRetry      = "retry"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// NotifyTask represents a queued post-commit job: receipt generation or a
// spreadsheet mirror update.
type NotifyTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	BookingID   int64      `json:"booking_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
