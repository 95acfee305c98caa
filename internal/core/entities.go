// Package core defines the essential interfaces and data structures that form
// the backbone of the application. These components are designed to be
// abstract, allowing for flexible and decoupled implementations of the
// consistency pipelines that keep denormalized and derived dish data correct.
package core

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// ErrNotFound is returned by lookups for entities that do not exist.
var ErrNotFound = errors.New("not found")

// Dish is the read-optimized menu entity. Besides its own attributes it
// carries copies of canteen/window/floor data and aggregates derived from
// reviews. Those fields are owned by the consistency pipelines, not by the
// dish CRUD itself.
type Dish struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	Price       float64 `db:"price" json:"price"`
	Status      string  `db:"status" json:"status"`

	CanteenID string `db:"canteen_id" json:"canteenId"`
	WindowID  string `db:"window_id" json:"windowId"`

	// Denormalized copies, kept in sync by the dish-sync pipeline.
	CanteenName  string `db:"canteen_name" json:"canteenName"`
	WindowName   string `db:"window_name" json:"windowName"`
	WindowNumber string `db:"window_number" json:"windowNumber"`
	FloorID      string `db:"floor_id" json:"floorId"`
	FloorName    string `db:"floor_name" json:"floorName"`
	FloorLevel   string `db:"floor_level" json:"floorLevel"`

	// Derived aggregates, kept in sync by the review-stats pipeline.
	ReviewCount   int     `db:"review_count" json:"reviewCount"`
	AverageRating float64 `db:"average_rating" json:"averageRating"`

	Tags pq.StringArray `db:"tags" json:"tags"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Canteen is the source of truth for the name copied onto dishes.
type Canteen struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Window is a serving window inside a canteen, located on a floor.
type Window struct {
	ID        string    `db:"id" json:"id"`
	CanteenID string    `db:"canteen_id" json:"canteenId"`
	FloorID   string    `db:"floor_id" json:"floorId"`
	Name      string    `db:"name" json:"name"`
	Number    string    `db:"number" json:"number"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Floor of a canteen building. Level is a display string ("1", "-1", "2").
type Floor struct {
	ID        string    `db:"id" json:"id"`
	CanteenID string    `db:"canteen_id" json:"canteenId"`
	Name      string    `db:"name" json:"name"`
	Level     string    `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Review of a dish. Only approved, non-deleted reviews count toward the
// dish aggregates.
type Review struct {
	ID        string     `db:"id" json:"id"`
	DishID    string     `db:"dish_id" json:"dishId"`
	UserID    string     `db:"user_id" json:"userId"`
	Rating    int        `db:"rating" json:"rating"`
	Content   string     `db:"content" json:"content"`
	Status    string     `db:"status" json:"status"`
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// Review statuses.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// DishStatusOnline marks dishes visible to clients; only those get canteen
// wide embedding refreshes.
const DishStatusOnline = "online"

// ReviewStats is the derived aggregate written back onto a dish.
type ReviewStats struct {
	Count   int     `db:"review_count" json:"reviewCount"`
	Average float64 `db:"average_rating" json:"averageRating"`
}

// UserProfile carries the feature inputs for a user embedding: declared
// preferences plus recent behavior signals.
type UserProfile struct {
	ID             string         `db:"id" json:"id"`
	Nickname       string         `db:"nickname" json:"nickname"`
	TastePrefs     pq.StringArray `db:"taste_prefs" json:"tastePrefs"`
	PriceSensitive bool           `db:"price_sensitive" json:"priceSensitive"`
	RecentDishIDs  []string       `db:"-" json:"recentDishIds"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// FloorUpdate is the optional floor portion of a window sync. It is present
// on the handler result only when the referenced floor was found and its
// fields were applied alongside the window fields.
type FloorUpdate struct {
	FloorID    string `json:"floorId"`
	FloorName  string `json:"floorName"`
	FloorLevel string `json:"floorLevel"`
}
