// Package reviewstats derives a dish's review count and average rating from
// its approved reviews.
package reviewstats

import (
	"time"

	"github.com/sevigo/canteen-sync/internal/core"
)

// QueueName identifies the review-stats queue.
const QueueName = "dish-review-stats"

// JobTypeRecompute is the single job type on the queue.
const JobTypeRecompute = "recompute-dish-review-stats"

// DefaultOptions are the enqueue options for recompute jobs.
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
