// Package queue implements the job-queue runtime shared by all consistency
// pipelines: a handler registry, an asynq/Redis backend for production, and
// an in-process backend for tests and single-node deployments.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sevigo/canteen-sync/internal/core"
)

// Default enqueue options, applied when a field is zero.
const (
	DefaultAttempts     = 3
	DefaultInitialDelay = time.Second
	DefaultTimeout      = 2 * time.Minute
)

// Backend is a queue implementation that can both accept jobs and answer
// status queries. Close releases backend resources; for the in-process
// backend it also drains in-flight jobs.
type Backend interface {
	core.Queue
	core.QueueInspector
	Close() error
}

// Registration binds a handler to one job type within a queue.
type Registration struct {
	Handler core.Handler
	Policy  core.FailurePolicy
	// OnError builds the completion report for SwallowAndReport handlers.
	// Ignored when Policy is Propagate.
	OnError func(payload []byte, err error) any
	// Backoff is consulted by backends that compute retry delays outside the
	// enqueue path.
	Backoff core.BackoffPolicy
	Timeout time.Duration
}

// Registry maps queue names and job types to their registrations. Job types
// are unique across queues; the per-queue level mirrors how queues are
// provisioned and consumed independently.
type Registry struct {
	mu     sync.RWMutex
	queues map[string]map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{queues: make(map[string]map[string]Registration)}
}

// Register adds a handler for jobType on queueName, filling zero backoff and
// timeout values with defaults.
func (r *Registry) Register(queueName, jobType string, reg Registration) {
	if reg.Backoff.Type == "" {
		reg.Backoff.Type = core.BackoffExponential
	}
	if reg.Backoff.InitialDelay == 0 {
		reg.Backoff.InitialDelay = DefaultInitialDelay
	}
	if reg.Timeout == 0 {
		reg.Timeout = DefaultTimeout
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	types, ok := r.queues[queueName]
	if !ok {
		types = make(map[string]Registration)
		r.queues[queueName] = types
	}
	types[jobType] = reg
}

// Lookup returns the registration for jobType on queueName.
func (r *Registry) Lookup(queueName, jobType string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.queues[queueName][jobType]
	return reg, ok
}

// LookupType finds a registration by job type alone, for backends that route
// by type.
func (r *Registry) LookupType(jobType string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, types := range r.queues {
		if reg, ok := types[jobType]; ok {
			return reg, true
		}
	}
	return Registration{}, false
}

// QueueNames lists every registered queue.
func (r *Registry) QueueNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.queues))
	for name := range r.queues {
		names = append(names, name)
	}
	return names
}

// JobTypes lists the job types registered on queueName.
func (r *Registry) JobTypes(queueName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.queues[queueName]))
	for t := range r.queues[queueName] {
		types = append(types, t)
	}
	return types
}

// BackoffForType returns the registered backoff policy for a job type, or
// the default policy for unknown types.
func (r *Registry) BackoffForType(jobType string) core.BackoffPolicy {
	if reg, ok := r.LookupType(jobType); ok {
		return reg.Backoff
	}
	return core.BackoffPolicy{Type: core.BackoffExponential, InitialDelay: DefaultInitialDelay}
}

// Dispatch runs the handler registered for (queueName, jobType) and applies
// its declared failure policy. An unknown job type completes as a logged
// no-op so one bad producer never wedges the queue. The returned error is
// what the queue backend should act on for retry purposes.
func (r *Registry) Dispatch(ctx context.Context, logger *slog.Logger, queueName, jobType string, payload []byte) (any, error) {
	reg, ok := r.Lookup(queueName, jobType)
	if !ok {
		logger.Warn("unknown job type, completing as no-op",
			"queue", queueName,
			"job_type", jobType,
		)
		return nil, nil
	}

	if reg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, reg.Timeout)
		defer cancel()
	}

	result, err := reg.Handler(ctx, payload)
	if err == nil {
		return result, nil
	}

	if reg.Policy == core.SwallowAndReport {
		logger.Error("job handler failed, completing with failure report",
			"queue", queueName,
			"job_type", jobType,
			"error", err,
		)
		if reg.OnError != nil {
			return reg.OnError(payload, err), nil
		}
		return map[string]any{"success": false}, nil
	}
	return nil, err
}

// normalizeOptions fills zero option fields with runtime defaults.
func normalizeOptions(opts core.JobOptions) core.JobOptions {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Backoff.Type == "" {
		opts.Backoff.Type = core.BackoffExponential
	}
	if opts.Backoff.InitialDelay == 0 {
		opts.Backoff.InitialDelay = DefaultInitialDelay
	}
	return opts
}
