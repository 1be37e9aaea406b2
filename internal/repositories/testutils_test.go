package repositories_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/phq9bot/internal/sqlite"
	"github.com/myrjola/phq9bot/internal/testhelpers"
)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	db, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cancel()
		if err = db.Close(); err != nil {
			t.Error(err)
		}
	})
	return db
}
