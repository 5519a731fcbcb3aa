// Package retention runs the scheduled sweep of expired dedup records (and
// the artifact cache). Dedup records cover a bounded redelivery window only;
// the sweep keeps the store from accumulating them forever.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"minuteman/pkg/cache"
	"minuteman/pkg/logger"
	"minuteman/pkg/store"
)

const defaultCron = "0 * * * *" // hourly

// Start launches the sweep scheduler. cronExpr empty selects the hourly
// default. Returns a cancel func.
func Start(ctx context.Context, cronExpr string, artifacts *cache.ArtifactCache) (context.CancelFunc, error) {
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid sweep cron expression: %s", cronExpr)
	}
	logger.Info("retention_sweep_enabled", "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)
	go run(ctx2, cronExpr, artifacts)
	return cancel, nil
}

func run(ctx context.Context, cronExpr string, artifacts *cache.ArtifactCache) {
	g := gronx.New()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due, err := g.IsDue(cronExpr, now)
			if err != nil || !due {
				continue
			}
			RunOnce(now, artifacts)
		}
	}
}

// RunOnce performs a single sweep pass. Exported so tests and operators can
// trigger it directly.
func RunOnce(now time.Time, artifacts *cache.ArtifactCache) {
	if n, err := store.SweepExpiredDedup(now); err != nil {
		logger.Warn("dedup_sweep_failed", "error", err)
	} else if n > 0 {
		logger.Info("dedup_sweep_done", "removed", n)
	}
	if artifacts != nil {
		if n := artifacts.Sweep(); n > 0 {
			logger.Info("artifact_cache_sweep_done", "removed", n)
		}
	}
}
