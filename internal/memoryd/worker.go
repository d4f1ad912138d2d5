package memoryd

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Pruner represents the retention behavior needed by the worker.
type Pruner interface {
	PruneOldest(ctx context.Context, keep int) (int64, error)
}

// StartRetention launches a periodic worker that caps how many memories
// each agent may accumulate in the dev store.
func StartRetention(ctx context.Context, logger *log.Logger, interval time.Duration, keep int, pruner Pruner) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := pruner.PruneOldest(ctx, keep)
			if err != nil {
				logger.Warn("retention prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("retention removed old memories", "count", n)
			}
		}
	}
}
