package embedding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sevigo/goframe/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/canteen-sync/internal/config"
	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.EmbeddingConfig {
	return config.EmbeddingConfig{
		DishCollection: "dishes",
		UserCollection: "users",
		BatchSize:      2,
	}
}

type fakeStore struct {
	storage.Store

	dishes        map[string]core.Dish
	onlineByCant  map[string][]string
	profiles      map[string]*core.UserProfile
	touchedDishes []string
	touchedUsers  []string
	err           error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		dishes:       make(map[string]core.Dish),
		onlineByCant: make(map[string][]string),
		profiles:     make(map[string]*core.UserProfile),
	}
}

func (f *fakeStore) GetDish(_ context.Context, dishID string) (*core.Dish, error) {
	if f.err != nil {
		return nil, f.err
	}
	dish, ok := f.dishes[dishID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &dish, nil
}

func (f *fakeStore) ListDishes(_ context.Context, dishIDs []string) ([]core.Dish, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]core.Dish, 0, len(dishIDs))
	for _, id := range dishIDs {
		if dish, ok := f.dishes[id]; ok {
			out = append(out, dish)
		}
	}
	return out, nil
}

func (f *fakeStore) ListOnlineDishIDsByCanteen(_ context.Context, canteenID string) ([]string, error) {
	return f.onlineByCant[canteenID], f.err
}

func (f *fakeStore) GetUserProfile(_ context.Context, userID string) (*core.UserProfile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return profile, nil
}

func (f *fakeStore) TouchDishEmbedding(_ context.Context, dishID, _ string) error {
	f.touchedDishes = append(f.touchedDishes, dishID)
	return nil
}

func (f *fakeStore) TouchUserEmbedding(_ context.Context, userID, _ string) error {
	f.touchedUsers = append(f.touchedUsers, userID)
	return nil
}

type upsertCall struct {
	collection string
	docs       []schema.Document
}

type fakeVectors struct {
	upserts []upsertCall
	err     error
}

func (f *fakeVectors) UpsertDocuments(_ context.Context, collectionName string, docs []schema.Document) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, upsertCall{collection: collectionName, docs: docs})
	return nil
}

// fakeCache records operations in call order so tests can assert the
// invalidate-then-warm sequence.
type fakeCache struct {
	ops []string
	err error
}

func (f *fakeCache) record(op string) error {
	if f.err != nil {
		return f.err
	}
	f.ops = append(f.ops, op)
	return nil
}

func (f *fakeCache) SetUserFeatures(_ context.Context, userID string, _ any) error {
	return f.record("set-features:" + userID)
}
func (f *fakeCache) InvalidateUserFeatures(_ context.Context, userID string) error {
	return f.record("invalidate-features:" + userID)
}
func (f *fakeCache) InvalidateUserRecommendations(_ context.Context, userID string) error {
	return f.record("invalidate-recs:" + userID)
}
func (f *fakeCache) InvalidateUserEmbedding(_ context.Context, userID string) error {
	return f.record("invalidate-embedding:" + userID)
}
func (f *fakeCache) SetUserEmbedding(_ context.Context, userID, _ string) error {
	return f.record("set-embedding:" + userID)
}
func (f *fakeCache) SetDishEmbedding(_ context.Context, dishID, _ string) error {
	return f.record("set-dish:" + dishID)
}

func newTestRefresher(store *fakeStore, vectors *fakeVectors, cache *fakeCache) Refresher {
	return NewRefresher(store, vectors, cache, testConfig(), testLogger())
}

func TestRefresher_RefreshDish(t *testing.T) {
	store := newFakeStore()
	store.dishes["d1"] = core.Dish{
		ID: "d1", Name: "Mapo Tofu", Description: "Spicy tofu",
		CanteenName: "North Canteen", WindowName: "Sichuan Window",
		FloorName: "First Floor", Price: 12.5, Tags: []string{"spicy"},
	}
	vectors := &fakeVectors{}
	cache := &fakeCache{}
	r := newTestRefresher(store, vectors, cache)

	ok, err := r.RefreshDish(context.Background(), "d1")

	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, vectors.upserts, 1)
	assert.Equal(t, "dishes", vectors.upserts[0].collection)
	require.Len(t, vectors.upserts[0].docs, 1)

	doc := vectors.upserts[0].docs[0]
	assert.Contains(t, doc.PageContent, "Mapo Tofu")
	assert.Contains(t, doc.PageContent, "North Canteen")
	assert.Equal(t, "d1", doc.Metadata["dishId"])

	assert.Equal(t, []string{"d1"}, store.touchedDishes)
	assert.Equal(t, []string{"set-dish:d1"}, cache.ops)
}

func TestRefresher_RefreshDishMissingIsNotAnError(t *testing.T) {
	r := newTestRefresher(newFakeStore(), &fakeVectors{}, &fakeCache{})

	ok, err := r.RefreshDish(context.Background(), "ghost")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefresher_RefreshDishesEmptyIsNoOp(t *testing.T) {
	vectors := &fakeVectors{}
	r := newTestRefresher(newFakeStore(), vectors, &fakeCache{})

	count, err := r.RefreshDishes(context.Background(), nil)

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, vectors.upserts)
}

func TestRefresher_RefreshCanteenDishesBatches(t *testing.T) {
	store := newFakeStore()
	for _, id := range []string{"d1", "d2", "d3", "d4", "d5"} {
		store.dishes[id] = core.Dish{ID: id, Name: id}
	}
	store.onlineByCant["c1"] = []string{"d1", "d2", "d3", "d4", "d5"}
	vectors := &fakeVectors{}
	r := newTestRefresher(store, vectors, &fakeCache{})

	count, err := r.RefreshCanteenDishes(context.Background(), "c1")

	require.NoError(t, err)
	assert.Equal(t, 5, count)
	// Batch size 2 over five dishes means three upsert calls.
	assert.Len(t, vectors.upserts, 3)
}

func TestRefresher_RefreshCanteenDishesNoneOnline(t *testing.T) {
	r := newTestRefresher(newFakeStore(), &fakeVectors{}, &fakeCache{})

	count, err := r.RefreshCanteenDishes(context.Background(), "empty")

	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRefresher_RefreshUserInvalidatesThenWarms(t *testing.T) {
	store := newFakeStore()
	store.profiles["u1"] = &core.UserProfile{
		ID:            "u1",
		TastePrefs:    []string{"spicy", "noodles"},
		RecentDishIDs: []string{"d1"},
	}
	store.dishes["d1"] = core.Dish{ID: "d1", Name: "Dan Dan Noodles"}
	vectors := &fakeVectors{}
	cache := &fakeCache{}
	r := newTestRefresher(store, vectors, cache)

	err := r.RefreshUser(context.Background(), "u1")

	require.NoError(t, err)
	// All three caches invalidate before any warm write.
	assert.Equal(t, []string{
		"invalidate-features:u1",
		"invalidate-recs:u1",
		"invalidate-embedding:u1",
		"set-embedding:u1",
		"set-features:u1",
	}, cache.ops)

	require.Len(t, vectors.upserts, 1)
	assert.Equal(t, "users", vectors.upserts[0].collection)
	doc := vectors.upserts[0].docs[0]
	assert.Contains(t, doc.PageContent, "spicy")
	assert.Contains(t, doc.PageContent, "Dan Dan Noodles")
	assert.Equal(t, "u1", doc.Metadata["userId"])

	assert.Equal(t, []string{"u1"}, store.touchedUsers)
}

func TestRefresher_RefreshUserVectorFailureSkipsWarm(t *testing.T) {
	store := newFakeStore()
	store.profiles["u1"] = &core.UserProfile{ID: "u1"}
	vectors := &fakeVectors{err: errors.New("qdrant down")}
	cache := &fakeCache{}
	r := newTestRefresher(store, vectors, cache)

	err := r.RefreshUser(context.Background(), "u1")

	require.Error(t, err)
	// Invalidation happened, warming did not: misses, not stale hits.
	assert.Equal(t, []string{
		"invalidate-features:u1",
		"invalidate-recs:u1",
		"invalidate-embedding:u1",
	}, cache.ops)
}
