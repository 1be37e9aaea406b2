package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/random"
)

// schemaObject is one row of sqlite_schema.
type schemaObject struct {
	Type      string `db:"type"`
	Name      string `db:"name"`
	TableName string `db:"tbl_name"`
	SQL       string `db:"sql"`
}

type schema map[string]schemaObject

func (s schema) ofType(typ string) []schemaObject {
	var objects []schemaObject
	for _, o := range s {
		if o.Type == typ {
			objects = append(objects, o)
		}
	}
	return objects
}

// migrate ensures that the db schema matches the target schema definition.
//
// We employ a very simple declarative schema migration that:
//
// 1. Drops deleted and changed indexes and triggers,
// 2. Deletes deleted tables,
// 3. Creates new tables,
// 4. Migrates changed tables using 12-step schema migration https://www.sqlite.org/lang_altertable.html#otheralter,
// 5. Creates the indexes and triggers missing after the table changes.
//
// The target schema is applied to a scratch in-memory database and both schemas are compared through sqlite_schema.
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrate(ctx context.Context, schemaDefinition string) (err error) {
	target, targetColumns, err := db.loadTargetSchema(ctx, schemaDefinition)
	if err != nil {
		return errors.Wrap(err, "load target schema")
	}

	// 12-step schema migration starts here. See https://www.sqlite.org/lang_altertable.html#otheralter.

	// Step 1: Disable foreign key validation temporarily. The read-write pool has a single connection so the pragma
	// applies to the transaction below.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	// Step 12: Re-enable foreign key validation.
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, errors.Wrap(fkErr, "re-enable foreign key validation"))
		}
	}()

	// Step 2: Start transaction.
	var tx *sqlx.Tx
	if tx, err = db.ReadWrite.BeginTxx(ctx, nil); err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", errors.SlogError(rbErr))
			}
		}
	}()

	// Step 3: Remember schema.
	var current schema
	if current, err = querySchema(ctx, tx); err != nil {
		return errors.Wrap(err, "query current schema")
	}

	if err = db.dropStaleObjects(ctx, tx, current, target); err != nil {
		return errors.Wrap(err, "drop stale indexes and triggers")
	}

	// Step 3-7 migrate tables.
	if err = db.migrateTables(ctx, tx, current, target, targetColumns); err != nil {
		return errors.Wrap(err, "migrate tables")
	}

	// Step 8: Recreate indexes and triggers associated with table if needed.
	// Step 9: Views are not used.
	if err = db.createMissingObjects(ctx, tx, target); err != nil {
		return errors.Wrap(err, "create indexes and triggers")
	}

	// Step 10: Check foreign key constraints.
	var violations []string
	if violations, err = queryStrings(ctx, tx, `SELECT "table" FROM pragma_foreign_key_check`); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if len(violations) > 0 {
		err = errors.New("foreign key violations", slog.Any("tables", violations))
		return err
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	// Step 12: is in defer above.

	return nil
}

// loadTargetSchema applies the schema definition to a scratch database and returns its objects and table columns.
func (db *Database) loadTargetSchema(ctx context.Context, schemaDefinition string) (schema, map[string][]string, error) {
	var (
		randomID     string
		dbNameLength uint = 20
		err          error
	)
	if randomID, err = random.Letters(dbNameLength); err != nil {
		return nil, nil, errors.Wrap(err, "generate random ID")
	}
	targetDB, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared", randomID))
	if err != nil {
		return nil, nil, errors.Wrap(err, "open schema target database")
	}
	defer func() {
		if closeErr := targetDB.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target database",
				errors.SlogError(closeErr))
		}
	}()
	targetDB.SetMaxOpenConns(1)

	if strings.TrimSpace(schemaDefinition) != "" {
		if _, err = targetDB.ExecContext(ctx, schemaDefinition); err != nil {
			return nil, nil, errors.Wrap(err, "apply schema to target database")
		}
	}
	target, err := querySchema(ctx, targetDB)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query target schema")
	}
	columns := make(map[string][]string)
	for _, table := range target.ofType("table") {
		if columns[table.Name], err = queryStrings(ctx, targetDB,
			"SELECT name FROM pragma_table_info(?)", table.Name); err != nil {
			return nil, nil, errors.Wrap(err, "query target columns", slog.String("table", table.Name))
		}
	}
	return target, columns, nil
}

// dropStaleObjects drops the indexes and triggers that are deleted or changed in the target schema.
func (db *Database) dropStaleObjects(ctx context.Context, tx *sqlx.Tx, current, target schema) error {
	for _, typ := range []string{"trigger", "index"} {
		for _, object := range current.ofType(typ) {
			if t, ok := target[object.Name]; ok && t.Type == typ && t.SQL == object.SQL {
				continue
			}
			db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping "+typ, slog.String("name", object.Name))
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS %s;", strings.ToUpper(typ),
				quoteIdentifier(object.Name))); err != nil {
				return errors.Wrap(err, "drop "+typ, slog.String("name", object.Name))
			}
		}
	}
	return nil
}

// migrateTables ensures table schema is synchronized between databases.
func (db *Database) migrateTables(
	ctx context.Context,
	tx *sqlx.Tx,
	current schema,
	target schema,
	targetColumns map[string][]string,
) error {
	var err error

	// Drop deleted tables.
	for _, table := range current.ofType("table") {
		if t, ok := target[table.Name]; ok && t.Type == "table" {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", table.Name))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s;", quoteIdentifier(table.Name))); err != nil {
			return errors.Wrap(err, "drop table", slog.String("table", table.Name))
		}
	}

	for _, table := range target.ofType("table") {
		existing, ok := current[table.Name]

		// Create new tables.
		if !ok || existing.Type != "table" {
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", table.SQL))
			if _, err = tx.ExecContext(ctx, table.SQL); err != nil {
				return errors.Wrap(err, "create table", slog.String("table", table.Name))
			}
			continue
		}
		if existing.SQL == table.SQL {
			continue
		}

		db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
			slog.String("table", table.Name),
			slog.String("current_sql", existing.SQL),
			slog.String("new_sql", table.SQL))

		// Step 4: Create tables according to new schema on temporary names.
		tempName := table.Name + "_migration_temp"
		tempNameSQL := strings.Replace(table.SQL, table.Name, tempName, 1)
		if _, err = tx.ExecContext(ctx, tempNameSQL); err != nil {
			return errors.Wrap(err, "create new table to temporary name", slog.String("query", tempNameSQL))
		}

		// Step 5: Copy common columns between tables.
		var currentColumns []string
		if currentColumns, err = queryStrings(ctx, tx, "SELECT name FROM pragma_table_info(?)", table.Name); err != nil {
			return errors.Wrap(err, "query current columns")
		}
		common := commonColumns(currentColumns, targetColumns[table.Name])
		if len(common) > 0 {
			columns := strings.Join(common, ", ")
			copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s;", //nolint: gosec // we trust the query.
				quoteIdentifier(tempName), columns, columns, quoteIdentifier(table.Name))
			db.logger.LogAttrs(ctx, slog.LevelInfo, "copying data", slog.String("query", copySQL))
			if _, err = tx.ExecContext(ctx, copySQL); err != nil {
				return errors.Wrap(err, "copy data")
			}
		}

		// Step 6: Drop the old table.
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s;", quoteIdentifier(table.Name))); err != nil {
			return errors.Wrap(err, "drop old table")
		}

		// Step 7: Rename new table to old table's name.
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s;",
			quoteIdentifier(tempName), quoteIdentifier(table.Name))); err != nil {
			return errors.Wrap(err, "rename new table")
		}
	}
	return nil
}

// createMissingObjects creates the target indexes and triggers that do not exist after the table migration.
func (db *Database) createMissingObjects(ctx context.Context, tx *sqlx.Tx, target schema) error {
	current, err := querySchema(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "query migrated schema")
	}
	for _, typ := range []string{"index", "trigger"} {
		for _, object := range target.ofType(typ) {
			if _, ok := current[object.Name]; ok {
				continue
			}
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating "+typ, slog.String("query", object.SQL))
			if _, err = tx.ExecContext(ctx, object.SQL); err != nil {
				return errors.Wrap(err, "create "+typ, slog.String("name", object.Name))
			}
		}
	}
	return nil
}

// querySchema returns the user-defined objects keyed by name. Internal objects and automatic indexes have no SQL.
func querySchema(ctx context.Context, q sqlx.QueryerContext) (schema, error) {
	var objects []schemaObject
	if err := sqlx.SelectContext(ctx, q, &objects, `SELECT type, name, tbl_name, sql
FROM sqlite_schema
WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite\_%' ESCAPE '\';`); err != nil {
		return nil, errors.Wrap(err, "select sqlite_schema")
	}
	s := make(schema, len(objects))
	for _, o := range objects {
		s[o.Name] = o
	}
	return s, nil
}

// queryStrings returns a single column of a query and its args.
func queryStrings(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]string, error) {
	var results []string
	if err := sqlx.SelectContext(ctx, q, &results, query, args...); err != nil {
		return nil, errors.Wrap(err, "select strings")
	}
	return results, nil
}

// commonColumns returns the quoted names present in both column lists, in target order.
func commonColumns(current, target []string) []string {
	present := make(map[string]bool, len(current))
	for _, c := range current {
		present[c] = true
	}
	var common []string
	for _, c := range target {
		if present[c] {
			// Quoting handles column names that are SQLite keywords.
			common = append(common, quoteIdentifier(c))
		}
	}
	return common
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
