package sqlite

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/phq9bot/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestDatabase_migrate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name              string
		schemaDefinitions []string
		testQueries       []string
		wantErr           bool
	}{
		{
			name:              "empty schema",
			schemaDefinitions: []string{""},
			testQueries:       []string{"SELECT * FROM sqlite_schema"},
			wantErr:           false,
		},
		{
			name:              "create table",
			schemaDefinitions: []string{"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"},
			testQueries: []string{
				"INSERT INTO test (name) VALUES ('test')",
				"SELECT * FROM test",
			},
			wantErr: false,
		},
		{
			name: "drop table",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"", // drop table
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "add column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
		{
			name: "remove column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "create index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     false,
		},
		{
			name: "drop index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     true,
		},
		{
			name: "update index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (id, name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     false,
		},
		{
			name: "create trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "delete trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
				"CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT )",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
		{
			name: "update trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT 1; END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			logger := testhelpers.NewLogger(io.Discard)
			db, err := connect(":memory:", logger)
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			for _, schemaDefinition := range tt.schemaDefinitions {
				logger.LogAttrs(ctx, slog.LevelInfo, "migrating", slog.String("schema", schemaDefinition))
				err = db.migrate(ctx, schemaDefinition)
				require.NoError(t, err)
			}
			for _, query := range tt.testQueries {
				logger.LogAttrs(ctx, slog.LevelInfo, "executing", slog.String("query", query))
				_, err = db.ReadWrite.ExecContext(ctx, query)
				if tt.wantErr {
					require.Error(t, err)
				} else {
					require.NoError(t, err)
				}
			}
		})
	}
}

func TestDatabase_migratePreservesData(t *testing.T) {
	ctx := context.Background()
	db, err := connect(":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.migrate(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)"))
	_, err = db.ReadWrite.ExecContext(ctx, "INSERT INTO test (id, name, age) VALUES (1, 'alice', 30)")
	require.NoError(t, err)

	require.NoError(t, db.migrate(ctx,
		`CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT NOT NULL, "order" INTEGER NOT NULL DEFAULT 0)`))

	var name string
	require.NoError(t, db.ReadOnly.GetContext(ctx, &name, "SELECT name FROM test WHERE id = 1"))
	require.Equal(t, "alice", name)
	_, err = db.ReadWrite.ExecContext(ctx, "SELECT age FROM test")
	require.Error(t, err, "dropped column")

	// Running the same definition again is a no-op apart from the rename normalization.
	require.NoError(t, db.migrate(ctx,
		`CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT NOT NULL, "order" INTEGER NOT NULL DEFAULT 0)`))
	require.NoError(t, db.ReadOnly.GetContext(ctx, &name, "SELECT name FROM test WHERE id = 1"))
	require.Equal(t, "alice", name)
}

func TestNewDatabase(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var tables []string
	require.NoError(t, db.ReadOnly.SelectContext(ctx, &tables,
		"SELECT name FROM sqlite_schema WHERE type = 'table' ORDER BY name"))
	require.Equal(t, []string{"answers", "screenings", "sessions"}, tables)

	require.NoError(t, db.Optimize(ctx))

	// The embedded schema is stable across restarts.
	require.NoError(t, db.migrate(ctx, schemaDefinition))
}

func TestDatabase_fileBacked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	path := t.TempDir() + "/phq9.sqlite"
	db, err := NewDatabase(ctx, path, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ReadWrite.ExecContext(ctx, `INSERT INTO sessions (token, data, expiry) VALUES ('t', x'00', 1.0)`)
	require.NoError(t, err)
	var count int
	require.NoError(t, db.ReadOnly.GetContext(ctx, &count, "SELECT COUNT(*) FROM sessions"))
	require.Equal(t, 1, count)

	_, err = db.ReadOnly.ExecContext(ctx, `DELETE FROM sessions`)
	require.Error(t, err, "read-only pool rejects writes")
}
