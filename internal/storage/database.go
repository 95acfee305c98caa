// Package storage provides the persistence collaborators used by the
// consistency pipelines: the relational store, the vector store, and the
// recommendation caches.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/canteen-sync/internal/core"
)

// Store defines the database operations the pipelines perform. Every write
// is a single bulk statement; the database's own atomicity is the only
// locking the pipelines rely on.
type Store interface {
	// UpdateDishCanteenName overwrites the copied canteen name on every dish
	// of the canteen and reports the affected row count.
	UpdateDishCanteenName(ctx context.Context, canteenID, newName string) (int64, error)
	// UpdateDishWindowInfo overwrites the copied window fields on every dish
	// of the window. newNumber is applied only when non-nil; a non-nil floor
	// additionally overwrites the copied floor fields in the same statement.
	UpdateDishWindowInfo(ctx context.Context, windowID, newName string, newNumber *string, floor *core.FloorUpdate) (int64, error)
	// UpdateDishFloorInfo overwrites the copied floor name/level on every
	// dish located on the floor.
	UpdateDishFloorInfo(ctx context.Context, floorID, newName, newLevel string) (int64, error)
	// GetFloor returns core.ErrNotFound for unknown floor IDs.
	GetFloor(ctx context.Context, floorID string) (*core.Floor, error)

	// DishReviewStats aggregates approved, non-deleted reviews of a dish in
	// one statement, defaulting the average to 0 when no review matches.
	DishReviewStats(ctx context.Context, dishID string) (core.ReviewStats, error)
	// UpdateDishReviewStats writes the derived aggregates onto the dish.
	UpdateDishReviewStats(ctx context.Context, dishID string, stats core.ReviewStats) error

	GetDish(ctx context.Context, dishID string) (*core.Dish, error)
	ListDishes(ctx context.Context, dishIDs []string) ([]core.Dish, error)
	ListOnlineDishIDsByCanteen(ctx context.Context, canteenID string) ([]string, error)
	GetUserProfile(ctx context.Context, userID string) (*core.UserProfile, error)

	// TouchDishEmbedding / TouchUserEmbedding record that an embedding was
	// recomputed at the given version.
	TouchDishEmbedding(ctx context.Context, dishID, version string) error
	TouchUserEmbedding(ctx context.Context, userID, version string) error
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store backed by Postgres.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) UpdateDishCanteenName(ctx context.Context, canteenID, newName string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dishes SET canteen_name = $1, updated_at = now() WHERE canteen_id = $2`,
		newName, canteenID)
	if err != nil {
		return 0, fmt.Errorf("failed to update canteen name on dishes: %w", err)
	}
	return res.RowsAffected()
}

func (s *postgresStore) UpdateDishWindowInfo(ctx context.Context, windowID, newName string, newNumber *string, floor *core.FloorUpdate) (int64, error) {
	var sb strings.Builder
	sb.WriteString("UPDATE dishes SET window_name = $1")
	args := []any{newName}

	if newNumber != nil {
		args = append(args, *newNumber)
		fmt.Fprintf(&sb, ", window_number = $%d", len(args))
	}
	if floor != nil {
		args = append(args, floor.FloorID)
		fmt.Fprintf(&sb, ", floor_id = $%d", len(args))
		args = append(args, floor.FloorName)
		fmt.Fprintf(&sb, ", floor_name = $%d", len(args))
		args = append(args, floor.FloorLevel)
		fmt.Fprintf(&sb, ", floor_level = $%d", len(args))
	}

	args = append(args, windowID)
	fmt.Fprintf(&sb, ", updated_at = now() WHERE window_id = $%d", len(args))

	res, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update window info on dishes: %w", err)
	}
	return res.RowsAffected()
}

func (s *postgresStore) UpdateDishFloorInfo(ctx context.Context, floorID, newName, newLevel string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dishes SET floor_name = $1, floor_level = $2, updated_at = now() WHERE floor_id = $3`,
		newName, newLevel, floorID)
	if err != nil {
		return 0, fmt.Errorf("failed to update floor info on dishes: %w", err)
	}
	return res.RowsAffected()
}

func (s *postgresStore) GetFloor(ctx context.Context, floorID string) (*core.Floor, error) {
	var floor core.Floor
	err := s.db.GetContext(ctx, &floor,
		`SELECT id, canteen_id, name, level, created_at, updated_at FROM floors WHERE id = $1`,
		floorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get floor %s: %w", floorID, err)
	}
	return &floor, nil
}

func (s *postgresStore) DishReviewStats(ctx context.Context, dishID string) (core.ReviewStats, error) {
	var stats core.ReviewStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS review_count, COALESCE(AVG(rating), 0) AS average_rating
		FROM reviews
		WHERE dish_id = $1 AND status = $2 AND deleted_at IS NULL`,
		dishID, core.ReviewStatusApproved)
	if err != nil {
		return core.ReviewStats{}, fmt.Errorf("failed to aggregate review stats for dish %s: %w", dishID, err)
	}
	return stats, nil
}

func (s *postgresStore) UpdateDishReviewStats(ctx context.Context, dishID string, stats core.ReviewStats) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE dishes SET review_count = $1, average_rating = $2, updated_at = now() WHERE id = $3`,
		stats.Count, stats.Average, dishID)
	if err != nil {
		return fmt.Errorf("failed to update review stats for dish %s: %w", dishID, err)
	}
	return nil
}

func (s *postgresStore) GetDish(ctx context.Context, dishID string) (*core.Dish, error) {
	var dish core.Dish
	err := s.db.GetContext(ctx, &dish, `SELECT * FROM dishes WHERE id = $1`, dishID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dish %s: %w", dishID, err)
	}
	return &dish, nil
}

func (s *postgresStore) ListDishes(ctx context.Context, dishIDs []string) ([]core.Dish, error) {
	if len(dishIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM dishes WHERE id IN (?)`, dishIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build dish list query: %w", err)
	}
	var dishes []core.Dish
	if err := s.db.SelectContext(ctx, &dishes, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	return dishes, nil
}

func (s *postgresStore) ListOnlineDishIDsByCanteen(ctx context.Context, canteenID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`SELECT id FROM dishes WHERE canteen_id = $1 AND status = $2 ORDER BY id`,
		canteenID, core.DishStatusOnline)
	if err != nil {
		return nil, fmt.Errorf("failed to list online dishes for canteen %s: %w", canteenID, err)
	}
	return ids, nil
}

func (s *postgresStore) GetUserProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	var profile core.UserProfile
	err := s.db.GetContext(ctx, &profile,
		`SELECT id, nickname, taste_prefs, price_sensitive, updated_at FROM users WHERE id = $1`,
		userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	err = s.db.SelectContext(ctx, &profile.RecentDishIDs, `
		SELECT dish_id FROM user_actions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 20`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent actions for user %s: %w", userID, err)
	}
	return &profile, nil
}

func (s *postgresStore) TouchDishEmbedding(ctx context.Context, dishID, version string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dish_embeddings (dish_id, version, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (dish_id)
		DO UPDATE SET version = EXCLUDED.version, updated_at = now()`,
		dishID, version)
	if err != nil {
		return fmt.Errorf("failed to record dish embedding %s: %w", dishID, err)
	}
	return nil
}

func (s *postgresStore) TouchUserEmbedding(ctx context.Context, userID, version string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_embeddings (user_id, version, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id)
		DO UPDATE SET version = EXCLUDED.version, updated_at = now()`,
		userID, version)
	if err != nil {
		return fmt.Errorf("failed to record user embedding %s: %w", userID, err)
	}
	return nil
}
