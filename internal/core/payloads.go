package core

// Job payload schemas. These are stable wire contracts between producers and
// workers; field names must not change.

// SyncCanteenNamePayload propagates a canteen rename into its dishes.
type SyncCanteenNamePayload struct {
	CanteenID string `json:"canteenId"`
	NewName   string `json:"newName"`
}

// SyncWindowInfoPayload propagates window changes into its dishes. NewNumber
// and NewFloorID are optional; a provided floor ID additionally refreshes the
// copied floor fields when the floor exists.
type SyncWindowInfoPayload struct {
	WindowID   string  `json:"windowId"`
	NewName    string  `json:"newName"`
	NewNumber  *string `json:"newNumber,omitempty"`
	NewFloorID *string `json:"newFloorId,omitempty"`
}

// SyncFloorInfoPayload propagates a floor rename/relevel into its dishes.
type SyncFloorInfoPayload struct {
	FloorID  string `json:"floorId"`
	NewName  string `json:"newName"`
	NewLevel string `json:"newLevel"`
}

// RecomputeReviewStatsPayload recomputes a dish's review aggregates.
type RecomputeReviewStatsPayload struct {
	DishID string `json:"dishId"`
}

// RefreshDishPayload refreshes one dish embedding.
type RefreshDishPayload struct {
	DishID string `json:"dishId"`
}

// RefreshDishesBatchPayload refreshes an explicit list of dish embeddings.
type RefreshDishesBatchPayload struct {
	DishIDs []string `json:"dishIds"`
}

// RefreshCanteenDishesPayload refreshes every online dish of a canteen.
type RefreshCanteenDishesPayload struct {
	CanteenID string `json:"canteenId"`
}

// RefreshUserPayload refreshes one user embedding and its dependent caches.
type RefreshUserPayload struct {
	UserID string `json:"userId"`
}
