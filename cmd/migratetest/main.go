package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/sqlite"
	"github.com/myrjola/phq9bot/internal/testhelpers"
)

// main opens a copy of the production database so that the embedded schema is synced onto it, and then checks that
// the data survived.
func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("PHQ9_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "PHQ9_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	var integrity string
	if err = db.ReadOnly.GetContext(ctx, &integrity, `PRAGMA integrity_check`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error checking integrity", errors.SlogError(err))
		os.Exit(1)
	}
	if integrity != "ok" {
		logger.LogAttrs(ctx, slog.LevelError, "database integrity check failed", slog.String("result", integrity))
		os.Exit(1)
	}

	// Orphaned answers mean the rebuild of the screenings table lost rows.
	var orphans int
	if err = db.ReadOnly.GetContext(ctx, &orphans, `SELECT COUNT(*)
FROM answers
WHERE conversation_id NOT IN (SELECT conversation_id FROM screenings)`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error counting orphaned answers", errors.SlogError(err))
		os.Exit(1)
	}
	if orphans != 0 {
		logger.LogAttrs(ctx, slog.LevelError, "answers without screening found", slog.Int("count", orphans))
		os.Exit(1)
	}

	var count int
	if err = db.ReadOnly.GetContext(ctx, &count, `SELECT COUNT(*) FROM screenings`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching screening count", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "screening count", slog.Int("count", count))

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	_ = db.Close()
	os.Exit(0)
}
