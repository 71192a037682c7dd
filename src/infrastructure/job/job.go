// Package job queues evaluation runs for asynchronous execution by a
// worker process.
package job

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrJobNotFound = errors.New("job not found")

// JobStatus tracks a queued job through its lifecycle.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is the persisted record behind one queued message. The queue carries
// only the job ID and payload; this record is the source of truth for
// status, so a lost or redelivered message can always be reconciled.
type Job struct {
	ID         int64           `json:"id"`
	TaskType   string          `json:"task_type"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	Attempts   int             `json:"attempts"`
	Error      *string         `json:"error,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// JobRepository persists job records. Get reports missing jobs as
// ErrJobNotFound.
type JobRepository interface {
	Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error)
	Get(ctx context.Context, id int64) (*Job, error)
	// MarkRunning flips the job to running, stamps started_at and counts
	// the attempt.
	MarkRunning(ctx context.Context, id int64) error
	// MarkFinished flips the job to completed or failed and stamps
	// finished_at. jobErr is recorded for failed jobs.
	MarkFinished(ctx context.Context, id int64, status JobStatus, jobErr *string) error
}
