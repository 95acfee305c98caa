package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sevigo/goframe/schema"

	"github.com/sevigo/canteen-sync/internal/config"
	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/storage"
)

// Version tag recorded with every recomputed vector.
const embeddingVersion = "v1"

// Refresher recomputes feature vectors and keeps the dependent stores
// aligned: the Qdrant collections, the relational freshness markers, and the
// Redis caches.
type Refresher interface {
	// RefreshDish recomputes one dish vector. A missing dish reports false
	// without an error; there is nothing to retry.
	RefreshDish(ctx context.Context, dishID string) (bool, error)
	// RefreshDishes recomputes vectors for an explicit ID list and returns
	// how many dishes were processed.
	RefreshDishes(ctx context.Context, dishIDs []string) (int, error)
	// RefreshCanteenDishes recomputes vectors for every online dish of a
	// canteen, in batches.
	RefreshCanteenDishes(ctx context.Context, canteenID string) (int, error)
	// RefreshUser invalidates the user's feature, recommendation, and
	// embedding caches, recomputes the user vector, and re-warms the caches
	// as one unit. A caller never observes only a subset invalidated.
	RefreshUser(ctx context.Context, userID string) error
}

type refresher struct {
	store   storage.Store
	vectors storage.VectorStore
	cache   storage.RecommendationCache
	cfg     config.EmbeddingConfig
	logger  *slog.Logger
}

// NewRefresher wires the embedding computation collaborators.
func NewRefresher(store storage.Store, vectors storage.VectorStore, cache storage.RecommendationCache, cfg config.EmbeddingConfig, logger *slog.Logger) Refresher {
	return &refresher{
		store:   store,
		vectors: vectors,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
	}
}

func (r *refresher) RefreshDish(ctx context.Context, dishID string) (bool, error) {
	dish, err := r.store.GetDish(ctx, dishID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			r.logger.Warn("dish not found for embedding refresh", "dish_id", dishID)
			return false, nil
		}
		return false, err
	}

	if err := r.upsertDishes(ctx, []core.Dish{*dish}); err != nil {
		return false, err
	}
	r.logger.Debug("refreshed dish embedding", "dish_id", dishID, "version", embeddingVersion)
	return true, nil
}

func (r *refresher) RefreshDishes(ctx context.Context, dishIDs []string) (int, error) {
	if len(dishIDs) == 0 {
		return 0, nil
	}
	dishes, err := r.store.ListDishes(ctx, dishIDs)
	if err != nil {
		return 0, err
	}
	if len(dishes) == 0 {
		return 0, nil
	}
	if err := r.upsertDishes(ctx, dishes); err != nil {
		return 0, err
	}
	return len(dishes), nil
}

func (r *refresher) RefreshCanteenDishes(ctx context.Context, canteenID string) (int, error) {
	ids, err := r.store.ListOnlineDishIDsByCanteen(ctx, canteenID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		r.logger.Info("no online dishes for canteen", "canteen_id", canteenID)
		return 0, nil
	}

	batchSize := r.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(ids)
	}
	processed := 0
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		count, err := r.RefreshDishes(ctx, ids[start:end])
		if err != nil {
			return processed, err
		}
		processed += count
		r.logger.Info("refreshing canteen dish embeddings",
			"canteen_id", canteenID, "processed", processed, "total", len(ids))
	}
	return processed, nil
}

func (r *refresher) RefreshUser(ctx context.Context, userID string) error {
	// Invalidate first so a crash mid-refresh leaves misses, not stale hits.
	if err := r.cache.InvalidateUserFeatures(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate user features: %w", err)
	}
	if err := r.cache.InvalidateUserRecommendations(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate user recommendations: %w", err)
	}
	if err := r.cache.InvalidateUserEmbedding(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate user embedding: %w", err)
	}

	profile, err := r.store.GetUserProfile(ctx, userID)
	if err != nil {
		return err
	}

	recent, err := r.store.ListDishes(ctx, profile.RecentDishIDs)
	if err != nil {
		return err
	}

	doc := userDocument(profile, recent)
	if err := r.vectors.UpsertDocuments(ctx, r.cfg.UserCollection, []schema.Document{doc}); err != nil {
		return err
	}
	if err := r.store.TouchUserEmbedding(ctx, userID, embeddingVersion); err != nil {
		return err
	}

	if err := r.cache.SetUserEmbedding(ctx, userID, embeddingVersion); err != nil {
		return fmt.Errorf("failed to warm user embedding cache: %w", err)
	}
	if err := r.cache.SetUserFeatures(ctx, userID, newUserFeatures(profile)); err != nil {
		return fmt.Errorf("failed to warm user feature cache: %w", err)
	}

	r.logger.Debug("refreshed user embedding and caches", "user_id", userID)
	return nil
}

// upsertDishes writes new vectors for the given dishes and records their
// freshness everywhere it is tracked.
func (r *refresher) upsertDishes(ctx context.Context, dishes []core.Dish) error {
	docs := make([]schema.Document, 0, len(dishes))
	for _, dish := range dishes {
		docs = append(docs, dishDocument(dish))
	}
	if err := r.vectors.UpsertDocuments(ctx, r.cfg.DishCollection, docs); err != nil {
		return err
	}
	for _, dish := range dishes {
		if err := r.store.TouchDishEmbedding(ctx, dish.ID, embeddingVersion); err != nil {
			return err
		}
		if err := r.cache.SetDishEmbedding(ctx, dish.ID, embeddingVersion); err != nil {
			return fmt.Errorf("failed to warm dish embedding cache: %w", err)
		}
	}
	return nil
}

// dishDocument builds the embeddable text for a dish from its content and
// location attributes.
func dishDocument(dish core.Dish) schema.Document {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s. %s.", dish.Name, dish.Description)
	fmt.Fprintf(&sb, " Served at %s, %s", dish.CanteenName, dish.WindowName)
	if dish.FloorName != "" {
		fmt.Fprintf(&sb, " (%s)", dish.FloorName)
	}
	sb.WriteString(".")
	if len(dish.Tags) > 0 {
		fmt.Fprintf(&sb, " Tags: %s.", strings.Join(dish.Tags, ", "))
	}
	fmt.Fprintf(&sb, " Price: %.2f.", dish.Price)

	return schema.Document{
		PageContent: sb.String(),
		Metadata: map[string]any{
			"dishId":  dish.ID,
			"version": embeddingVersion,
		},
	}
}

// userDocument builds the embeddable text for a user from declared
// preferences and recent behavior.
func userDocument(profile *core.UserProfile, recent []core.Dish) schema.Document {
	var sb strings.Builder
	if len(profile.TastePrefs) > 0 {
		fmt.Fprintf(&sb, "Prefers %s.", strings.Join(profile.TastePrefs, ", "))
	}
	if profile.PriceSensitive {
		sb.WriteString(" Price sensitive.")
	}
	if len(recent) > 0 {
		names := make([]string, 0, len(recent))
		for _, dish := range recent {
			names = append(names, dish.Name)
		}
		fmt.Fprintf(&sb, " Recently interacted with: %s.", strings.Join(names, ", "))
	}

	return schema.Document{
		PageContent: strings.TrimSpace(sb.String()),
		Metadata: map[string]any{
			"userId":  profile.ID,
			"version": embeddingVersion,
		},
	}
}

// userFeatures is the cached feature snapshot the recommender reads.
type userFeatures struct {
	UserID         string    `json:"userId"`
	TastePrefs     []string  `json:"tastePrefs"`
	PriceSensitive bool      `json:"priceSensitive"`
	RecentDishIDs  []string  `json:"recentDishIds"`
	RefreshedAt    time.Time `json:"refreshedAt"`
}

func newUserFeatures(profile *core.UserProfile) userFeatures {
	return userFeatures{
		UserID:         profile.ID,
		TastePrefs:     profile.TastePrefs,
		PriceSensitive: profile.PriceSensitive,
		RecentDishIDs:  profile.RecentDishIDs,
		RefreshedAt:    time.Now().UTC(),
	}
}
