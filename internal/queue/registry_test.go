package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/canteen-sync/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_RegisterFillsDefaults(t *testing.T) {
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: func(context.Context, []byte) (any, error) { return nil, nil },
	})

	reg, ok := r.Lookup("q", "job")
	require.True(t, ok)
	assert.Equal(t, core.BackoffExponential, reg.Backoff.Type)
	assert.Equal(t, DefaultInitialDelay, reg.Backoff.InitialDelay)
	assert.Equal(t, DefaultTimeout, reg.Timeout)
}

func TestRegistry_DispatchUnknownTypeIsNoOp(t *testing.T) {
	r := NewRegistry()

	result, err := r.Dispatch(context.Background(), testLogger(), "q", "never-registered", []byte(`{}`))

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestRegistry_DispatchPropagatesErrors(t *testing.T) {
	r := NewRegistry()
	handlerErr := errors.New("db down")
	r.Register("q", "job", Registration{
		Handler: func(context.Context, []byte) (any, error) { return nil, handlerErr },
		Policy:  core.Propagate,
	})

	_, err := r.Dispatch(context.Background(), testLogger(), "q", "job", []byte(`{}`))

	assert.ErrorIs(t, err, handlerErr)
}

func TestRegistry_DispatchSwallowAndReport(t *testing.T) {
	tests := []struct {
		name    string
		onError func(payload []byte, err error) any
		want    any
	}{
		{
			name: "custom report builder",
			onError: func([]byte, error) any {
				return map[string]any{"userId": "u1", "success": false}
			},
			want: map[string]any{"userId": "u1", "success": false},
		},
		{
			name:    "default report",
			onError: nil,
			want:    map[string]any{"success": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.Register("q", "job", Registration{
				Handler: func(context.Context, []byte) (any, error) { return nil, errors.New("boom") },
				Policy:  core.SwallowAndReport,
				OnError: tt.onError,
			})

			result, err := r.Dispatch(context.Background(), testLogger(), "q", "job", []byte(`{}`))

			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestRegistry_DispatchAppliesTimeout(t *testing.T) {
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: func(ctx context.Context, _ []byte) (any, error) {
			deadline, ok := ctx.Deadline()
			if !ok {
				return nil, errors.New("expected a deadline")
			}
			if time.Until(deadline) > time.Second {
				return nil, errors.New("deadline too far out")
			}
			return "ok", nil
		},
		Policy:  core.Propagate,
		Timeout: 500 * time.Millisecond,
	})

	result, err := r.Dispatch(context.Background(), testLogger(), "q", "job", []byte(`{}`))

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRegistry_BackoffForType(t *testing.T) {
	r := NewRegistry()
	r.Register("q", "job", Registration{
		Handler: func(context.Context, []byte) (any, error) { return nil, nil },
		Backoff: core.BackoffPolicy{Type: core.BackoffExponential, InitialDelay: 1500 * time.Millisecond},
	})

	assert.Equal(t, 1500*time.Millisecond, r.BackoffForType("job").InitialDelay)
	assert.Equal(t, DefaultInitialDelay, r.BackoffForType("unknown").InitialDelay)
}

func TestTyped_DecodesPayload(t *testing.T) {
	type payload struct {
		DishID string `json:"dishId"`
	}
	h := Typed(func(_ context.Context, p payload) (any, error) {
		return p.DishID, nil
	})

	result, err := h(context.Background(), []byte(`{"dishId":"d-42"}`))

	require.NoError(t, err)
	assert.Equal(t, "d-42", result)
}

func TestTyped_BadPayloadFails(t *testing.T) {
	type payload struct {
		DishID string `json:"dishId"`
	}
	h := Typed(func(_ context.Context, p payload) (any, error) {
		return p.DishID, nil
	})

	_, err := h(context.Background(), []byte(`not json`))

	assert.Error(t, err)
}
