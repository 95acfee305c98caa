// Package dishsync keeps the denormalized canteen/window/floor copies on
// dishes consistent with their source-of-truth entities.
package dishsync

import (
	"time"

	"github.com/sevigo/canteen-sync/internal/core"
)

// QueueName identifies the denormalization-sync queue.
const QueueName = "dish-sync"

// Job types processed on the dish-sync queue.
const (
	JobTypeSyncCanteenName = "sync-canteen-name"
	JobTypeSyncWindowInfo  = "sync-window-info"
	JobTypeSyncFloorInfo   = "sync-floor-info"
)

// DefaultOptions are the enqueue options every dish-sync job ships with.
func DefaultOptions() core.JobOptions {
	return core.JobOptions{
		Attempts: 3,
		Backoff: core.BackoffPolicy{
			Type:         core.BackoffExponential,
			InitialDelay: time.Second,
		},
		RemoveOnComplete: 100,
		RemoveOnFail:     50,
	}
}
