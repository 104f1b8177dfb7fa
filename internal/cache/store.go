// Package cache memoizes the last reconciliation report for a bounded time.
package cache

import (
	"context"
	"time"

	"catalogsync/internal/model"
)

// Store keeps at most one report. Load reports a miss with ok == false and
// a nil error.
type Store interface {
	Load(ctx context.Context) (*model.Report, bool, error)
	Save(ctx context.Context, r *model.Report, ttl time.Duration) error
	Clear(ctx context.Context) error
}
