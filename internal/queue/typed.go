package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sevigo/canteen-sync/internal/core"
)

// Typed adapts a payload-typed handler function to the raw core.Handler the
// runtime invokes. A payload that fails to decode is a programming error on
// the producer side and is not retried as if it were transient; it surfaces
// as a normal handler error and exhausts its attempts.
func Typed[P any](fn func(ctx context.Context, payload P) (any, error)) core.Handler {
	return func(ctx context.Context, raw []byte) (any, error) {
		var payload P
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode job payload: %w", err)
		}
		return fn(ctx, payload)
	}
}
