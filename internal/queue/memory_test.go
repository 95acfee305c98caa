package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/canteen-sync/internal/core"
)

// fastOptions keeps retry delays short enough for tests.
func fastOptions(attempts int) core.JobOptions {
	return core.JobOptions{
		Attempts: attempts,
		Backoff:  core.BackoffPolicy{Type: core.BackoffExponential, InitialDelay: time.Millisecond},
	}
}

// waitForState polls until the job reaches a terminal state or the deadline
// passes.
func waitForState(t *testing.T, m *Memory, queueName, jobID string, want core.JobState) *core.JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, err := m.JobStatus(context.Background(), queueName, jobID)
		require.NoError(t, err)
		if status != nil && status.State == want {
			return status
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s never reached state %s", jobID, want)
	return nil
}

func TestMemory_CompletesJob(t *testing.T) {
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: Typed(func(_ context.Context, p map[string]string) (any, error) {
			return map[string]string{"echo": p["value"]}, nil
		}),
		Policy: core.Propagate,
	})
	m := NewMemory(r, 2, testLogger())
	defer m.Stop()

	jobID, err := m.Enqueue(context.Background(), "q", "job", map[string]string{"value": "hi"}, fastOptions(3))
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	status := waitForState(t, m, "q", jobID, core.JobStateCompleted)
	assert.Equal(t, 1, status.AttemptsMade)

	var result map[string]string
	require.NoError(t, json.Unmarshal(status.ReturnValue, &result))
	assert.Equal(t, "hi", result["echo"])
}

func TestMemory_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: func(context.Context, []byte) (any, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("transient")
			}
			return "done", nil
		},
		Policy:  core.Propagate,
		Backoff: core.BackoffPolicy{Type: core.BackoffExponential, InitialDelay: time.Millisecond},
	})
	m := NewMemory(r, 1, testLogger())
	defer m.Stop()

	jobID, err := m.Enqueue(context.Background(), "q", "job", struct{}{}, fastOptions(3))
	require.NoError(t, err)

	status := waitForState(t, m, "q", jobID, core.JobStateCompleted)
	assert.Equal(t, 3, status.AttemptsMade)
	assert.EqualValues(t, 3, calls.Load())
}

func TestMemory_FailsAfterExhaustingAttempts(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: func(context.Context, []byte) (any, error) {
			calls.Add(1)
			return nil, errors.New("permanent")
		},
		Policy:  core.Propagate,
		Backoff: core.BackoffPolicy{Type: core.BackoffExponential, InitialDelay: time.Millisecond},
	})
	m := NewMemory(r, 1, testLogger())
	defer m.Stop()

	jobID, err := m.Enqueue(context.Background(), "q", "job", struct{}{}, fastOptions(3))
	require.NoError(t, err)

	status := waitForState(t, m, "q", jobID, core.JobStateFailed)
	assert.Equal(t, 3, status.AttemptsMade)
	assert.Equal(t, "permanent", status.FailedReason)
	assert.EqualValues(t, 3, calls.Load())

	qs, err := m.QueueStatus(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1, qs.Failed)
	assert.Equal(t, 0, qs.Completed)
}

func TestMemory_DedupCoalescesWaitingJobs(t *testing.T) {
	block := make(chan struct{})
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: func(context.Context, []byte) (any, error) {
			<-block
			return nil, nil
		},
		Policy: core.Propagate,
	})
	// Single worker, blocked on a filler job so dedup'd jobs stay waiting.
	m := NewMemory(r, 1, testLogger())
	defer m.Stop()

	fillerID, err := m.Enqueue(context.Background(), "q", "job", struct{}{}, fastOptions(1))
	require.NoError(t, err)
	waitForState(t, m, "q", fillerID, core.JobStateActive)

	opts := fastOptions(1)
	opts.DedupKey = "user-embedding-u1"
	first, err := m.Enqueue(context.Background(), "q", "job", struct{}{}, opts)
	require.NoError(t, err)
	second, err := m.Enqueue(context.Background(), "q", "job", struct{}{}, opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	qs, err := m.QueueStatus(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1, qs.Waiting)

	close(block)
	waitForState(t, m, "q", first, core.JobStateCompleted)

	// After completion the key is released and a new job is accepted
	// under its own ID.
	third, err := m.Enqueue(context.Background(), "q", "job", struct{}{}, opts)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestMemory_DedupKeyReuseSurvivesRetention(t *testing.T) {
	block := make(chan struct{})
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: Typed(func(_ context.Context, p map[string]bool) (any, error) {
			if p["block"] {
				<-block
			}
			return nil, nil
		}),
		Policy: core.Propagate,
	})
	m := NewMemory(r, 2, testLogger())
	defer m.Stop()
	defer close(block)

	opts := fastOptions(1)
	opts.DedupKey = "user-embedding-u1"
	opts.RemoveOnComplete = 1

	first, err := m.Enqueue(context.Background(), "q", "job", map[string]bool{}, opts)
	require.NoError(t, err)
	waitForState(t, m, "q", first, core.JobStateCompleted)

	// Re-use the released key while the predecessor's record is still
	// retained. The new run needs its own identity.
	second, err := m.Enqueue(context.Background(), "q", "job", map[string]bool{"block": true}, opts)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	waitForState(t, m, "q", second, core.JobStateActive)

	// An unrelated completion pushes the first run out of retention. That
	// must not touch the in-flight run.
	fillerOpts := fastOptions(1)
	fillerOpts.RemoveOnComplete = 1
	filler, err := m.Enqueue(context.Background(), "q", "job", map[string]bool{}, fillerOpts)
	require.NoError(t, err)
	waitForState(t, m, "q", filler, core.JobStateCompleted)

	status, err := m.JobStatus(context.Background(), "q", second)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, core.JobStateActive, status.State)
}

func TestMemory_RetentionTrimsCompleted(t *testing.T) {
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: func(context.Context, []byte) (any, error) { return nil, nil },
		Policy:  core.Propagate,
	})
	m := NewMemory(r, 1, testLogger())
	defer m.Stop()

	opts := fastOptions(1)
	opts.RemoveOnComplete = 2

	ids := make([]string, 0, 4)
	for range 4 {
		id, err := m.Enqueue(context.Background(), "q", "job", struct{}{}, opts)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	waitForState(t, m, "q", ids[3], core.JobStateCompleted)

	qs, err := m.QueueStatus(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, qs.Completed)

	// Oldest records are gone entirely.
	status, err := m.JobStatus(context.Background(), "q", ids[0])
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestMemory_InspectionDoesNotCreateQueues(t *testing.T) {
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: func(context.Context, []byte) (any, error) { return nil, nil },
		Policy:  core.Propagate,
	})
	m := NewMemory(r, 1, testLogger())
	defer m.Stop()

	// A registered queue with no traffic reports zero counts.
	qs, err := m.QueueStatus(context.Background(), "q")
	require.NoError(t, err)
	require.NotNil(t, qs)
	assert.Equal(t, core.QueueStatus{}, *qs)

	status, err := m.JobStatus(context.Background(), "q", "missing")
	require.NoError(t, err)
	assert.Nil(t, status)

	// Unknown queue names report nil.
	qs, err = m.QueueStatus(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, qs)

	// No queue or workers came to life for any of the lookups.
	m.mu.Lock()
	assert.Empty(t, m.queues)
	m.mu.Unlock()
}

func TestMemory_UnknownJobTypeCompletesAsNoOp(t *testing.T) {
	m := NewMemory(NewRegistry(), 1, testLogger())
	defer m.Stop()

	jobID, err := m.Enqueue(context.Background(), "q", "never-registered", struct{}{}, fastOptions(3))
	require.NoError(t, err)

	status := waitForState(t, m, "q", jobID, core.JobStateCompleted)
	assert.Equal(t, 1, status.AttemptsMade)
}

func TestMemory_StopDrainsWorkers(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: func(context.Context, []byte) (any, error) {
			calls.Add(1)
			return nil, nil
		},
		Policy: core.Propagate,
	})
	m := NewMemory(r, 2, testLogger())

	for range 5 {
		_, err := m.Enqueue(context.Background(), "q", "job", struct{}{}, fastOptions(1))
		require.NoError(t, err)
	}
	m.Stop()

	assert.EqualValues(t, 5, calls.Load())
}
