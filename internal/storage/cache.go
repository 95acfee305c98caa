package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs. Embedding entries outlive feature snapshots because they are
// only invalidated through explicit refreshes.
const (
	userFeatureTTL = time.Hour
	recommendTTL   = 10 * time.Minute
	embeddingTTL   = 24 * time.Hour
)

// RecommendationCache is the cache collaborator of the embedding-refresh
// pipeline: user feature snapshots, cached recommendation results, and
// embedding freshness markers. The pipeline only invalidates and warms;
// cache reads belong to the recommender.
type RecommendationCache interface {
	SetUserFeatures(ctx context.Context, userID string, features any) error
	InvalidateUserFeatures(ctx context.Context, userID string) error
	InvalidateUserRecommendations(ctx context.Context, userID string) error
	InvalidateUserEmbedding(ctx context.Context, userID string) error
	SetUserEmbedding(ctx context.Context, userID, version string) error
	SetDishEmbedding(ctx context.Context, dishID, version string) error
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache creates a RecommendationCache on the given Redis client.
func NewRedisCache(client *redis.Client) RecommendationCache {
	return &redisCache{client: client}
}

func userFeaturesKey(userID string) string  { return fmt.Sprintf("user:features:%s", userID) }
func userRecsKey(userID string) string      { return fmt.Sprintf("user:recs:%s", userID) }
func userEmbeddingKey(userID string) string { return fmt.Sprintf("user:embedding:%s", userID) }
func dishEmbeddingKey(dishID string) string { return fmt.Sprintf("dish:embedding:%s", dishID) }

func (c *redisCache) SetUserFeatures(ctx context.Context, userID string, features any) error {
	data, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("failed to marshal user features for %s: %w", userID, err)
	}
	return c.client.Set(ctx, userFeaturesKey(userID), data, userFeatureTTL).Err()
}

func (c *redisCache) InvalidateUserFeatures(ctx context.Context, userID string) error {
	return c.client.Del(ctx, userFeaturesKey(userID)).Err()
}

func (c *redisCache) InvalidateUserRecommendations(ctx context.Context, userID string) error {
	return c.client.Del(ctx, userRecsKey(userID)).Err()
}

func (c *redisCache) InvalidateUserEmbedding(ctx context.Context, userID string) error {
	return c.client.Del(ctx, userEmbeddingKey(userID)).Err()
}

func (c *redisCache) SetUserEmbedding(ctx context.Context, userID, version string) error {
	return c.client.Set(ctx, userEmbeddingKey(userID), version, embeddingTTL).Err()
}

func (c *redisCache) SetDishEmbedding(ctx context.Context, dishID, version string) error {
	return c.client.Set(ctx, dishEmbeddingKey(dishID), version, embeddingTTL).Err()
}
