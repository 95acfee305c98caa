package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sevigo/canteen-sync/internal/core"
)

// Completed-task records are kept for a day; asynq retention is time-based
// rather than count-based, so RemoveOnComplete/RemoveOnFail act as an
// on/off switch here.
const asynqRetention = 24 * time.Hour

// Asynq is the Redis-backed queue producer and status surface. Consuming
// happens in AsynqWorker, typically in a dedicated worker process.
type Asynq struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	registry  *Registry
	logger    *slog.Logger
}

// NewAsynq connects a producer-side client and inspector to Redis.
func NewAsynq(redisAddr string, registry *Registry, logger *slog.Logger) *Asynq {
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	return &Asynq{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		registry:  registry,
		logger:    logger,
	}
}

// Enqueue implements core.Queue. A dedup-key conflict with a pending or
// active job coalesces into that job and returns its ID.
func (a *Asynq) Enqueue(ctx context.Context, queueName, jobType string, payload any, opts core.JobOptions) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload for %s: %w", jobType, err)
	}
	opts = normalizeOptions(opts)

	taskOpts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(opts.Attempts - 1),
	}
	if opts.Timeout > 0 {
		taskOpts = append(taskOpts, asynq.Timeout(opts.Timeout))
	}
	if opts.RemoveOnComplete > 0 {
		taskOpts = append(taskOpts, asynq.Retention(asynqRetention))
	}
	if opts.DedupKey != "" {
		taskOpts = append(taskOpts, asynq.TaskID(opts.DedupKey))
	}

	info, err := a.client.EnqueueContext(ctx, asynq.NewTask(jobType, data), taskOpts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			a.logger.Debug("coalesced duplicate job",
				"queue", queueName, "job_type", jobType, "dedup_key", opts.DedupKey)
			return opts.DedupKey, nil
		}
		return "", fmt.Errorf("failed to enqueue %s on %s: %w", jobType, queueName, err)
	}
	return info.ID, nil
}

// QueueStatus implements core.QueueInspector. An unknown queue reports as
// nil, same as an unknown job.
func (a *Asynq) QueueStatus(_ context.Context, queueName string) (*core.QueueStatus, error) {
	qi, err := a.inspector.GetQueueInfo(queueName)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to inspect queue %s: %w", queueName, err)
	}
	return &core.QueueStatus{
		Waiting:   qi.Pending,
		Active:    qi.Active,
		Completed: qi.Completed,
		Failed:    qi.Archived,
		Delayed:   qi.Scheduled + qi.Retry,
	}, nil
}

// JobStatus implements core.QueueInspector. Unknown or retention-removed
// jobs report as nil.
func (a *Asynq) JobStatus(_ context.Context, queueName, jobID string) (*core.JobStatus, error) {
	ti, err := a.inspector.GetTaskInfo(queueName, jobID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to inspect job %s on %s: %w", jobID, queueName, err)
	}

	state := mapTaskState(ti.State)
	attempts := ti.Retried
	if state == core.JobStateActive || state == core.JobStateCompleted || state == core.JobStateFailed {
		attempts++
	}
	return &core.JobStatus{
		ID:           ti.ID,
		State:        state,
		AttemptsMade: attempts,
		ReturnValue:  json.RawMessage(ti.Result),
		FailedReason: ti.LastErr,
	}, nil
}

// Close releases the Redis connections used for enqueueing and inspection.
func (a *Asynq) Close() error {
	ierr := a.inspector.Close()
	if cerr := a.client.Close(); cerr != nil {
		return cerr
	}
	return ierr
}

func mapTaskState(s asynq.TaskState) core.JobState {
	switch s {
	case asynq.TaskStatePending, asynq.TaskStateAggregating:
		return core.JobStateWaiting
	case asynq.TaskStateActive:
		return core.JobStateActive
	case asynq.TaskStateScheduled, asynq.TaskStateRetry:
		return core.JobStateDelayed
	case asynq.TaskStateArchived:
		return core.JobStateFailed
	case asynq.TaskStateCompleted:
		return core.JobStateCompleted
	default:
		return core.JobStateUnknown
	}
}

// AsynqWorker consumes every queue in the registry, routing tasks to their
// registered handlers.
type AsynqWorker struct {
	server   *asynq.Server
	registry *Registry
	logger   *slog.Logger
}

// NewAsynqWorker builds the consumer server. All registered queues share the
// concurrency budget with equal weight. Retry delays follow each job type's
// registered backoff policy.
func NewAsynqWorker(redisAddr string, concurrency int, registry *Registry, logger *slog.Logger) *AsynqWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	queues := make(map[string]int, len(registry.QueueNames()))
	for _, name := range registry.QueueNames() {
		queues[name] = 1
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queues,
			RetryDelayFunc: func(n int, _ error, t *asynq.Task) time.Duration {
				return registry.BackoffForType(t.Type()).Delay(n)
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
				logger.Error("job processing error", "job_type", task.Type(), "error", err)
			}),
			Logger: asynqLogger{logger},
		},
	)
	return &AsynqWorker{server: server, registry: registry, logger: logger}
}

// Run starts processing and blocks until Shutdown is called or the server
// fails.
func (w *AsynqWorker) Run() error {
	mux := asynq.NewServeMux()
	for _, queueName := range w.registry.QueueNames() {
		for _, jobType := range w.registry.JobTypes(queueName) {
			mux.HandleFunc(jobType, w.handlerFor(queueName))
		}
	}

	w.logger.Info("starting queue worker", "queues", w.registry.QueueNames())
	if err := w.server.Run(mux); err != nil {
		return fmt.Errorf("queue worker stopped with error: %w", err)
	}
	return nil
}

// Shutdown stops workers and waits for in-flight jobs to finish.
func (w *AsynqWorker) Shutdown() {
	w.logger.Info("shutting down queue worker")
	w.server.Shutdown()
}

func (w *AsynqWorker) handlerFor(queueName string) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		result, err := w.registry.Dispatch(ctx, w.logger, queueName, t.Type(), t.Payload())
		if err != nil {
			return err
		}
		if result != nil {
			if data, merr := json.Marshal(result); merr == nil {
				if _, werr := t.ResultWriter().Write(data); werr != nil {
					w.logger.Warn("failed to record job result", "job_type", t.Type(), "error", werr)
				}
			}
		}
		return nil
	}
}

// asynqLogger adapts slog to asynq's logging interface.
type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
