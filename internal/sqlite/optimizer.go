package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/phq9bot/internal/errors"
)

// runOptimizer runs optimize once per interval until ctx is done. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) runOptimizer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := db.Optimize(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", errors.SlogError(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Optimize gathers statistics the query planner can use.
func (db *Database) Optimize(ctx context.Context) error {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return errors.Wrap(err, "optimize database")
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
	return nil
}
