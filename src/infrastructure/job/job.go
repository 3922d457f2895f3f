package job

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrJobNotFound is returned when a job ID has no matching record.
var ErrJobNotFound = errors.New("job not found")

// JobStatus is the lifecycle state of a queued job. Jobs move from pending
// to running, then to completed or failed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one unit of queued background work. Payload is task-specific JSON;
// for ingest jobs it is an IngestPayload. Error carries the failure message
// once a job ends up failed.
type Job struct {
	ID        int64           `json:"id"`
	TaskType  string          `json:"task_type"`
	Payload   json.RawMessage `json:"payload"`
	Status    JobStatus       `json:"status"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JobRepository persists jobs so the API process that enqueues them and the
// worker that runs them see the same state.
type JobRepository interface {
	Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error)
	Get(ctx context.Context, id int64) (*Job, error)
	UpdateStatus(ctx context.Context, id int64, status JobStatus, err *string) error
}
