// Package retention prunes raw samples that can no longer contribute to
// any baseline. Predictions only ever look back one horizon, so anything
// older than the maximum horizon is dead weight in the store.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/nicktill/tinypredict/pkg/storage"
)

// Pruner deletes raw samples past the configured maximum age.
type Pruner struct {
	storage storage.Storage
	maxAge  time.Duration
}

// New creates a pruner keeping samples for maxAge.
func New(store storage.Storage, maxAge time.Duration) *Pruner {
	return &Pruner{storage: store, maxAge: maxAge}
}

// Prune removes samples older than now minus the maximum age.
func (p *Pruner) Prune(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-p.maxAge)
	if err := p.storage.Delete(ctx, cutoff); err != nil {
		return fmt.Errorf("failed to delete samples before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return nil
}
