package service

import (
	"context"

	"peerrent-backend/internal/domain"
)

// withConflictRetry re-runs the whole read-modify-write once when the
// optimistic update loses a race. A second loss is surfaced to the caller,
// who must re-fetch and decide.
func withConflictRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if domain.IsKind(err, domain.KindConcurrentModification) {
		return fn(ctx)
	}
	return err
}
