package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/random"
)

//go:embed schema.sql
var schemaDefinition string

// OptimizeInterval is how often PRAGMA optimize runs on long-lived connections.
const OptimizeInterval = time.Hour

type Database struct {
	ReadWrite *sqlx.DB
	ReadOnly  *sqlx.DB
	logger    *slog.Logger
}

// NewDatabase connects to database, synchronizes the schema, and starts the periodic optimizer that stops with ctx.
//
// It establishes two database connections, one for read/write operations and one for read-only operations.
// This is a best practice mentioned in https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(url, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	if err = db.migrate(ctx, schemaDefinition); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "synchronize schema")
	}

	go db.runOptimizer(ctx, OptimizeInterval)

	return db, nil
}

func connect(url string, logger *slog.Logger) (*Database, error) {
	var (
		err         error
		readWriteDB *sqlx.DB
		readDB      *sqlx.DB
	)

	// For in-memory databases, we need shared cache mode so that the schema target and the main database can be told
	// apart by name. For parallel tests, we need to use a different database for each test to avoid sharing data.
	// See https://www.sqlite.org/inmemorydb.html.
	isInMemory := strings.Contains(url, ":memory:")
	inMemoryConfig := ""
	if isInMemory {
		var (
			randomID     string
			dbNameLength uint = 20
		)
		if randomID, err = random.Letters(dbNameLength); err != nil {
			return nil, errors.Wrap(err, "generate random ID")
		}
		url = randomID
		inMemoryConfig = "&mode=memory&cache=shared"
	}
	commonConfig := strings.Join([]string{
		// Write-ahead logging enables higher performance and concurrent readers.
		"_journal_mode=wal",
		// Avoids SQLITE_BUSY errors when database is under load.
		"_busy_timeout=5000",
		// Increases performance at the cost of durability https://www.sqlite.org/pragma.html#pragma_synchronous.
		"_synchronous=normal",
		// Enables foreign key constraints.
		"_foreign_keys=on",
		// Performance enhancement by storing temporary tables indices in memory instead of files.
		"_temp_store=memory",
	}, "&")

	// The options prefixed with underscore '_' are SQLite pragmas documented at https://www.sqlite.org/pragma.html.
	// The options without leading underscore are SQLite URI parameters documented at https://www.sqlite.org/uri.html.
	readWriteConfig := fmt.Sprintf("file:%s?_txlock=immediate&%s%s", url, commonConfig, inMemoryConfig)
	if !isInMemory {
		readWriteConfig += "&mode=rwc"
	}

	if readWriteDB, err = sqlx.Open("sqlite3", readWriteConfig); err != nil {
		return nil, errors.Wrap(err, "open read-write database")
	}
	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)

	// A shared-cache in-memory database lives as long as its last connection, and table locks in shared-cache mode
	// are not covered by the busy timeout. Both pools therefore share the single read-write connection.
	if isInMemory {
		readWriteDB.SetConnMaxLifetime(0)
		readWriteDB.SetConnMaxIdleTime(0)
		return &Database{ReadWrite: readWriteDB, ReadOnly: readWriteDB, logger: logger}, nil
	}
	readWriteDB.SetConnMaxLifetime(time.Hour)
	readWriteDB.SetConnMaxIdleTime(time.Hour)

	readConfig := fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s", url, commonConfig)
	if readDB, err = sqlx.Open("sqlite3", readConfig); err != nil {
		_ = readWriteDB.Close()
		return nil, errors.Wrap(err, "open read database")
	}
	maxReadConns := 10
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)
	readDB.SetConnMaxLifetime(time.Hour)
	readDB.SetConnMaxIdleTime(time.Hour)

	return &Database{ReadWrite: readWriteDB, ReadOnly: readDB, logger: logger}, nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	var errs []error
	if err := db.ReadWrite.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close read-write database"))
	}
	if db.ReadOnly != db.ReadWrite {
		if err := db.ReadOnly.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close read database"))
		}
	}
	return errors.Join(errs...)
}
