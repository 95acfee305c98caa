package reviewstats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore serves canned aggregates and records what gets written back.
type fakeStore struct {
	storage.Store

	stats    map[string]core.ReviewStats
	written  map[string]core.ReviewStats
	readErr  error
	writeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stats:   make(map[string]core.ReviewStats),
		written: make(map[string]core.ReviewStats),
	}
}

func (f *fakeStore) DishReviewStats(_ context.Context, dishID string) (core.ReviewStats, error) {
	if f.readErr != nil {
		return core.ReviewStats{}, f.readErr
	}
	return f.stats[dishID], nil
}

func (f *fakeStore) UpdateDishReviewStats(_ context.Context, dishID string, stats core.ReviewStats) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written[dishID] = stats
	return nil
}

func TestHandler_Recompute(t *testing.T) {
	store := newFakeStore()
	// Ratings 2, 3, 4, 4 over four approved reviews.
	store.stats["d1"] = core.ReviewStats{Count: 4, Average: 3.25}
	h := NewHandler(store, testLogger())

	stats, err := h.Recompute(context.Background(), core.RecomputeReviewStatsPayload{DishID: "d1"})

	require.NoError(t, err)
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 3.25, stats.Average, 1e-9)
	assert.Equal(t, stats, store.written["d1"])
}

func TestHandler_RecomputeZeroReviews(t *testing.T) {
	store := newFakeStore()
	h := NewHandler(store, testLogger())

	stats, err := h.Recompute(context.Background(), core.RecomputeReviewStatsPayload{DishID: "lonely"})

	require.NoError(t, err)
	assert.Zero(t, stats.Count)
	assert.Zero(t, stats.Average)
	// The zeros are written, not skipped.
	written, ok := store.written["lonely"]
	require.True(t, ok)
	assert.Equal(t, core.ReviewStats{}, written)
}

func TestHandler_RecomputeIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.stats["d1"] = core.ReviewStats{Count: 2, Average: 4.5}
	h := NewHandler(store, testLogger())

	first, err := h.Recompute(context.Background(), core.RecomputeReviewStatsPayload{DishID: "d1"})
	require.NoError(t, err)
	second, err := h.Recompute(context.Background(), core.RecomputeReviewStatsPayload{DishID: "d1"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, store.written["d1"])
}

func TestHandler_RecomputeErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeStore)
	}{
		{"aggregate fails", func(f *fakeStore) { f.readErr = errors.New("db down") }},
		{"write fails", func(f *fakeStore) { f.writeErr = errors.New("db down") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tt.setup(store)
			h := NewHandler(store, testLogger())

			_, err := h.Recompute(context.Background(), core.RecomputeReviewStatsPayload{DishID: "d1"})

			assert.Error(t, err)
		})
	}
}
