package core

import (
	"context"
	"encoding/json"
	"time"
)

// ExecutionMode decides, once per trigger-service instance, whether pipeline
// operations run inline or are handed to a queue. It never changes mid-run.
type ExecutionMode string

const (
	// ModeSync executes the handler body within the caller's flow. Used by
	// tests and single-process deployments that need deterministic effects.
	ModeSync ExecutionMode = "sync"
	// ModeAsync packages the operation as a job and enqueues it.
	ModeAsync ExecutionMode = "async"
)

// FailurePolicy declares how the worker runtime treats an error returned by
// a handler.
type FailurePolicy int

const (
	// Propagate lets the error reach the queue runtime so its retry and
	// backoff machinery engages. The default for purely idempotent handlers.
	Propagate FailurePolicy = iota
	// SwallowAndReport logs the error and completes the job with a
	// structured failure report instead of failing it. Used where the job is
	// a best-effort side computation.
	SwallowAndReport
)

// BackoffPolicy controls the delay between retry attempts.
type BackoffPolicy struct {
	Type         string        `yaml:"type"`
	InitialDelay time.Duration `yaml:"initialDelay"`
}

// Backoff types.
const (
	BackoffExponential = "exponential"
	BackoffFixed       = "fixed"
)

// Delay returns the wait before the next attempt, given the number of
// attempts already made (1-based): initialDelay * 2^(attemptsMade-1) for
// exponential, initialDelay otherwise.
func (b BackoffPolicy) Delay(attemptsMade int) time.Duration {
	if attemptsMade < 1 {
		attemptsMade = 1
	}
	if b.Type == BackoffFixed {
		return b.InitialDelay
	}
	return b.InitialDelay << (attemptsMade - 1)
}

// JobOptions mirror the enqueue options recognized by every queue backend.
type JobOptions struct {
	// Attempts is the total number of times a job may run, first try
	// included. Zero means the default of 3.
	Attempts int
	Backoff  BackoffPolicy
	// RemoveOnComplete / RemoveOnFail cap how many terminal job records the
	// backend retains, bounding unbounded growth.
	RemoveOnComplete int
	RemoveOnFail     int
	// DedupKey folds an enqueue into an already pending/active job carrying
	// the same key instead of creating a duplicate.
	DedupKey string
	// Timeout bounds a single handler invocation; expiry counts as an error
	// for retry purposes.
	Timeout time.Duration
}

// Handler executes one job. Payload is the raw JSON the producer enqueued.
// Handlers must be idempotent: at-least-once delivery means a retry can
// re-invoke a handler whose previous attempt partially succeeded.
type Handler func(ctx context.Context, payload []byte) (any, error)

// Queue accepts typed jobs for asynchronous processing. Implementations are
// injected collaborators created at startup and drained at shutdown.
type Queue interface {
	// Enqueue adds a job and returns its ID as soon as the job is durable.
	// A dedup-key collision is not an error; the existing job's ID comes
	// back instead.
	Enqueue(ctx context.Context, queueName, jobType string, payload any, opts JobOptions) (string, error)
}

// JobState is the observable lifecycle position of a job.
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateDelayed   JobState = "delayed"
	JobStateUnknown   JobState = "unknown"
)

// QueueStatus holds per-state job counts for one queue.
type QueueStatus struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
}

// JobStatus describes a single job for operational monitoring.
type JobStatus struct {
	ID           string          `json:"id"`
	State        JobState        `json:"state"`
	Progress     int             `json:"progress"`
	AttemptsMade int             `json:"attemptsMade"`
	ReturnValue  json.RawMessage `json:"returnValue,omitempty"`
	FailedReason string          `json:"failedReason,omitempty"`
}

// QueueInspector is the read-only status surface over queues and jobs.
type QueueInspector interface {
	// QueueStatus returns counts for the named queue.
	QueueStatus(ctx context.Context, queueName string) (*QueueStatus, error)
	// JobStatus returns the state of a single job, or nil when the job is
	// unknown or already removed by retention.
	JobStatus(ctx context.Context, queueName, jobID string) (*JobStatus, error)
}
