package screening

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/phq9bot/internal/errors"
)

// SweepInterval is how often persisted screenings past the retention are deleted.
const SweepInterval = 10 * time.Minute

// Sweep deletes persisted screenings not updated within the retention.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	if m.cfg.Store == nil || m.cfg.Retention <= 0 {
		return 0, nil
	}
	n, err := m.cfg.Store.DeleteStale(ctx, time.Now().Add(-m.cfg.Retention))
	if err != nil {
		return 0, errors.Wrap(err, "delete stale screenings")
	}
	return n, nil
}

// RunSweeper sweeps once per interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		start := time.Now()
		n, err := m.Sweep(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			m.logger.LogAttrs(ctx, slog.LevelError, "failed to sweep screenings", errors.SlogError(err))
		case n > 0:
			m.logger.LogAttrs(ctx, slog.LevelInfo, "swept stale screenings",
				slog.Int64("deleted", n), slog.Duration("duration", time.Since(start)))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
