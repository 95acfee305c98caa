package dishsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/queue"
	"github.com/sevigo/canteen-sync/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore records the calls the handler makes. Unused Store methods panic
// through the embedded nil interface.
type fakeStore struct {
	storage.Store

	floors map[string]*core.Floor

	canteenCalls []canteenCall
	windowCalls  []windowCall
	floorCalls   []floorCall

	affected int64
	err      error
}

type canteenCall struct {
	canteenID, newName string
}

type windowCall struct {
	windowID, newName string
	newNumber         *string
	floor             *core.FloorUpdate
}

type floorCall struct {
	floorID, newName, newLevel string
}

func (f *fakeStore) UpdateDishCanteenName(_ context.Context, canteenID, newName string) (int64, error) {
	f.canteenCalls = append(f.canteenCalls, canteenCall{canteenID, newName})
	return f.affected, f.err
}

func (f *fakeStore) UpdateDishWindowInfo(_ context.Context, windowID, newName string, newNumber *string, floor *core.FloorUpdate) (int64, error) {
	f.windowCalls = append(f.windowCalls, windowCall{windowID, newName, newNumber, floor})
	return f.affected, f.err
}

func (f *fakeStore) UpdateDishFloorInfo(_ context.Context, floorID, newName, newLevel string) (int64, error) {
	f.floorCalls = append(f.floorCalls, floorCall{floorID, newName, newLevel})
	return f.affected, f.err
}

func (f *fakeStore) GetFloor(_ context.Context, floorID string) (*core.Floor, error) {
	floor, ok := f.floors[floorID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return floor, nil
}

func TestHandler_SyncCanteenName(t *testing.T) {
	store := &fakeStore{affected: 12}
	h := NewHandler(store, testLogger())

	count, err := h.SyncCanteenName(context.Background(), core.SyncCanteenNamePayload{
		CanteenID: "c1",
		NewName:   "North Canteen",
	})

	require.NoError(t, err)
	assert.EqualValues(t, 12, count)
	require.Len(t, store.canteenCalls, 1)
	assert.Equal(t, canteenCall{"c1", "North Canteen"}, store.canteenCalls[0])
}

func TestHandler_SyncCanteenNameZeroDishes(t *testing.T) {
	store := &fakeStore{affected: 0}
	h := NewHandler(store, testLogger())

	count, err := h.SyncCanteenName(context.Background(), core.SyncCanteenNamePayload{
		CanteenID: "empty",
		NewName:   "Renamed",
	})

	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandler_SyncWindowInfoWithFloorMove(t *testing.T) {
	store := &fakeStore{
		affected: 3,
		floors: map[string]*core.Floor{
			"f2": {ID: "f2", Name: "Second Floor", Level: "2"},
		},
	}
	h := NewHandler(store, testLogger())

	number := "A1"
	floorID := "f2"
	result, err := h.SyncWindowInfo(context.Background(), core.SyncWindowInfoPayload{
		WindowID:   "w1",
		NewName:    "Noodle Bar",
		NewNumber:  &number,
		NewFloorID: &floorID,
	})

	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Affected)
	require.NotNil(t, result.Floor)
	assert.Equal(t, core.FloorUpdate{FloorID: "f2", FloorName: "Second Floor", FloorLevel: "2"}, *result.Floor)

	require.Len(t, store.windowCalls, 1)
	call := store.windowCalls[0]
	assert.Equal(t, "w1", call.windowID)
	assert.Equal(t, "Noodle Bar", call.newName)
	require.NotNil(t, call.newNumber)
	assert.Equal(t, "A1", *call.newNumber)
	require.NotNil(t, call.floor)
}

func TestHandler_SyncWindowInfoMissingFloorIsPartial(t *testing.T) {
	store := &fakeStore{affected: 3, floors: map[string]*core.Floor{}}
	h := NewHandler(store, testLogger())

	floorID := "ghost"
	result, err := h.SyncWindowInfo(context.Background(), core.SyncWindowInfoPayload{
		WindowID:   "w1",
		NewName:    "Noodle Bar",
		NewFloorID: &floorID,
	})

	// Missing floor skips the floor portion, window fields still update.
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Affected)
	assert.Nil(t, result.Floor)
	require.Len(t, store.windowCalls, 1)
	assert.Nil(t, store.windowCalls[0].floor)
}

func TestHandler_SyncWindowInfoWithoutOptionalFields(t *testing.T) {
	store := &fakeStore{affected: 1}
	h := NewHandler(store, testLogger())

	result, err := h.SyncWindowInfo(context.Background(), core.SyncWindowInfoPayload{
		WindowID: "w1",
		NewName:  "Grill",
	})

	require.NoError(t, err)
	assert.Nil(t, result.Floor)
	require.Len(t, store.windowCalls, 1)
	assert.Nil(t, store.windowCalls[0].newNumber)
	assert.Nil(t, store.windowCalls[0].floor)
}

func TestHandler_SyncFloorInfo(t *testing.T) {
	store := &fakeStore{affected: 7}
	h := NewHandler(store, testLogger())

	count, err := h.SyncFloorInfo(context.Background(), core.SyncFloorInfoPayload{
		FloorID:  "f1",
		NewName:  "Basement",
		NewLevel: "-1",
	})

	require.NoError(t, err)
	assert.EqualValues(t, 7, count)
	require.Len(t, store.floorCalls, 1)
	assert.Equal(t, floorCall{"f1", "Basement", "-1"}, store.floorCalls[0])
}

func TestHandler_StoreErrorPropagates(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	h := NewHandler(store, testLogger())

	_, err := h.SyncCanteenName(context.Background(), core.SyncCanteenNamePayload{CanteenID: "c1", NewName: "x"})

	assert.Error(t, err)
}

func TestService_ModeEquivalence(t *testing.T) {
	// The same rename through sync mode and through a drained async queue
	// must leave the store in the same state.
	runSync := func() *fakeStore {
		store := &fakeStore{affected: 2}
		h := NewHandler(store, testLogger())
		svc := NewService(core.ModeSync, nil, h, DefaultOptions(), testLogger())
		_, err := svc.SyncCanteenName(context.Background(), "c1", "Renamed")
		require.NoError(t, err)
		return store
	}

	runAsync := func() *fakeStore {
		store := &fakeStore{affected: 2}
		h := NewHandler(store, testLogger())
		registry := queue.NewRegistry()
		h.Register(registry)
		backend := queue.NewMemory(registry, 1, testLogger())
		svc := NewService(core.ModeAsync, backend, h, DefaultOptions(), testLogger())
		jobID, err := svc.SyncCanteenName(context.Background(), "c1", "Renamed")
		require.NoError(t, err)
		require.NotEmpty(t, jobID)
		backend.Stop() // drain
		return store
	}

	assert.Equal(t, runSync().canteenCalls, runAsync().canteenCalls)
}
