package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/canteen-sync/internal/core"
)

// Memory is an in-process queue backend with the same contract as the Redis
// backend: named FIFO queues, bounded worker concurrency, exponential-backoff
// retries, dedup keys, retention caps, and full status counts. It backs
// hermetic tests and single-node deployments where Redis is not worth its
// operational cost.
type Memory struct {
	registry    *Registry
	logger      *slog.Logger
	concurrency int

	mu     sync.Mutex
	queues map[string]*memoryQueue
	closed bool
	wg     sync.WaitGroup
}

type memJob struct {
	id           string
	jobType      string
	payload      []byte
	opts         core.JobOptions
	state        core.JobState
	attemptsMade int
	result       any
	failedReason string
}

type memoryQueue struct {
	name string

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*memJob
	jobs    map[string]*memJob
	dedup   map[string]*memJob
	// Terminal job IDs in completion order, trimmed to the retention caps.
	completed []string
	failed    []string
	active    int
	delayed   int
	closed    bool
}

// NewMemory creates the backend. Workers for a queue start lazily on its
// first enqueue. If concurrency is 0 or negative, it defaults to 1.
func NewMemory(registry *Registry, concurrency int, logger *slog.Logger) *Memory {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Memory{
		registry:    registry,
		logger:      logger,
		concurrency: concurrency,
		queues:      make(map[string]*memoryQueue),
	}
}

// Enqueue implements core.Queue. Capacity is unbounded; the call never
// blocks on workers.
func (m *Memory) Enqueue(_ context.Context, queueName, jobType string, payload any, opts core.JobOptions) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	opts = normalizeOptions(opts)

	q := m.getQueue(queueName)
	q.mu.Lock()
	defer q.mu.Unlock()

	if opts.DedupKey != "" {
		if existing, ok := q.dedup[opts.DedupKey]; ok {
			m.logger.Debug("coalesced duplicate job",
				"queue", queueName, "job_type", jobType, "dedup_key", opts.DedupKey)
			return existing.id, nil
		}
	}

	// IDs are always unique, even for dedup-keyed jobs: a reused key must
	// not collide with a terminal predecessor still held by retention.
	j := &memJob{
		id:      uuid.NewString(),
		jobType: jobType,
		payload: data,
		opts:    opts,
		state:   core.JobStateWaiting,
	}
	q.jobs[j.id] = j
	if opts.DedupKey != "" {
		q.dedup[opts.DedupKey] = j
	}
	q.pending = append(q.pending, j)
	q.cond.Signal()
	return j.id, nil
}

// QueueStatus implements core.QueueInspector. Completed and failed counts
// reflect retained records, matching what retention leaves observable. A
// registered queue that has never seen an enqueue reports zero counts; an
// unknown queue name reports nil. Inspection never instantiates a queue.
func (m *Memory) QueueStatus(_ context.Context, queueName string) (*core.QueueStatus, error) {
	q := m.peekQueue(queueName)
	if q == nil {
		if m.registered(queueName) {
			return &core.QueueStatus{}, nil
		}
		return nil, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return &core.QueueStatus{
		Waiting:   len(q.pending),
		Active:    q.active,
		Completed: len(q.completed),
		Failed:    len(q.failed),
		Delayed:   q.delayed,
	}, nil
}

// JobStatus implements core.QueueInspector. Jobs removed by retention report
// as nil.
func (m *Memory) JobStatus(_ context.Context, queueName, jobID string) (*core.JobStatus, error) {
	q := m.peekQueue(queueName)
	if q == nil {
		return nil, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[jobID]
	if !ok {
		return nil, nil
	}
	status := &core.JobStatus{
		ID:           j.id,
		State:        j.state,
		AttemptsMade: j.attemptsMade,
		FailedReason: j.failedReason,
	}
	if j.result != nil {
		if data, err := json.Marshal(j.result); err == nil {
			status.ReturnValue = data
		}
	}
	return status, nil
}

// Stop closes every queue and waits for in-flight jobs to finish. Jobs still
// waiting for a retry delay fail terminally with a shutdown reason.
func (m *Memory) Stop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	queues := make([]*memoryQueue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	for _, q := range queues {
		q.mu.Lock()
		q.closed = true
		q.cond.Broadcast()
		q.mu.Unlock()
	}
	m.wg.Wait()
	m.logger.Info("memory queue backend stopped")
}

// Close implements Backend.
func (m *Memory) Close() error {
	m.Stop()
	return nil
}

// peekQueue looks a queue up without creating it.
func (m *Memory) peekQueue(name string) *memoryQueue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queues[name]
}

func (m *Memory) registered(name string) bool {
	for _, queueName := range m.registry.QueueNames() {
		if queueName == name {
			return true
		}
	}
	return false
}

func (m *Memory) getQueue(name string) *memoryQueue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.queues[name]; ok {
		return q
	}
	q := &memoryQueue{
		name:  name,
		jobs:  make(map[string]*memJob),
		dedup: make(map[string]*memJob),
	}
	q.cond = sync.NewCond(&q.mu)
	m.queues[name] = q
	if !m.closed {
		for range m.concurrency {
			m.wg.Add(1)
			go m.worker(q)
		}
	}
	return q
}

// worker pulls jobs from one queue until it is closed and drained.
func (m *Memory) worker(q *memoryQueue) {
	defer m.wg.Done()
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		j := q.pending[0]
		q.pending = q.pending[1:]
		j.state = core.JobStateActive
		j.attemptsMade++
		q.active++
		q.mu.Unlock()

		result, err := m.registry.Dispatch(context.Background(), m.logger, q.name, j.jobType, j.payload)

		q.mu.Lock()
		q.active--
		switch {
		case err == nil:
			j.result = result
			q.finalize(j, core.JobStateCompleted)
		case j.attemptsMade >= j.opts.Attempts:
			j.failedReason = err.Error()
			q.finalize(j, core.JobStateFailed)
			m.logger.Error("job failed after exhausting retries",
				"queue", q.name,
				"job_type", j.jobType,
				"job_id", j.id,
				"attempts", j.attemptsMade,
				"error", err,
			)
		default:
			delay := j.opts.Backoff.Delay(j.attemptsMade)
			j.state = core.JobStateDelayed
			q.delayed++
			m.logger.Warn("job failed, scheduling retry",
				"queue", q.name,
				"job_type", j.jobType,
				"job_id", j.id,
				"attempt", j.attemptsMade,
				"delay", delay,
				"error", err,
			)
			time.AfterFunc(delay, func() { q.requeue(j) })
		}
		q.mu.Unlock()
	}
}

// requeue moves a delayed job back to pending once its backoff elapsed.
func (q *memoryQueue) requeue(j *memJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.delayed--
	if q.closed {
		j.failedReason = "queue shut down before retry"
		q.finalize(j, core.JobStateFailed)
		return
	}
	j.state = core.JobStateWaiting
	q.pending = append(q.pending, j)
	q.cond.Signal()
}

// finalize records a terminal state, releases the dedup key, and trims the
// retention ring using the job's own cap. Callers hold q.mu.
func (q *memoryQueue) finalize(j *memJob, state core.JobState) {
	j.state = state
	if j.opts.DedupKey != "" && q.dedup[j.opts.DedupKey] == j {
		delete(q.dedup, j.opts.DedupKey)
	}

	ring, limit := &q.completed, j.opts.RemoveOnComplete
	if state == core.JobStateFailed {
		ring, limit = &q.failed, j.opts.RemoveOnFail
	}
	*ring = append(*ring, j.id)
	if limit > 0 {
		for len(*ring) > limit {
			delete(q.jobs, (*ring)[0])
			*ring = (*ring)[1:]
		}
	}
}
