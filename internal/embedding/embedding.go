// Package embedding refreshes the feature vectors behind recommendations
// when dish content or user behavior changes, together with the caches that
// depend on them.
package embedding

import (
	"fmt"
	"time"

	"github.com/sevigo/canteen-sync/internal/core"
)

// QueueName identifies the embedding-refresh queue.
const QueueName = "embedding"

// Job types processed on the embedding queue.
const (
	JobTypeRefreshDish          = "refresh-dish"
	JobTypeRefreshDishesBatch   = "refresh-dishes-batch"
	JobTypeRefreshCanteenDishes = "refresh-canteen-dishes"
	JobTypeRefreshUser          = "refresh-user"
)

// DefaultOptions are the enqueue options for embedding jobs. Recomputes hit
// an external embedder, so the initial backoff is longer than for plain
// database work.
func DefaultOptions() core.JobOptions {
	return core.JobOptions{
		Attempts: 3,
		Backoff: core.BackoffPolicy{
			Type:         core.BackoffExponential,
			InitialDelay: 1500 * time.Millisecond,
		},
		RemoveOnComplete: 100,
		RemoveOnFail:     100,
	}
}

// UserDedupKey coalesces bursts of refresh triggers for one user into a
// bounded number of in-flight jobs.
func UserDedupKey(userID string) string {
	return fmt.Sprintf("user-embedding-%s", userID)
}
