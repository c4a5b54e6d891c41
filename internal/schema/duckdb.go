package schema

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/alexSpace56/data-navigator/internal/errors"
)

const duckColumnsSQL = `
SELECT c.schema_name, c.table_name, c.column_name, c.data_type, c.is_nullable
FROM duckdb_columns() c
JOIN duckdb_tables() t
  ON t.database_name = c.database_name
 AND t.schema_name = c.schema_name
 AND t.table_name = c.table_name
WHERE c.database_name = current_database()
  AND NOT c.internal
  AND c.schema_name IN (%s)
ORDER BY c.schema_name, c.table_name, c.column_index`

const duckPrimaryKeysSQL = `
SELECT schema_name, table_name, unnest(constraint_column_names)
FROM duckdb_constraints()
WHERE database_name = current_database()
  AND constraint_type = 'PRIMARY KEY'`

// DuckDBSource introspects a DuckDB database file.
// DuckDB has no stored procedures or triggers, so those calls always report
// an introspection error.
type DuckDBSource struct {
	db   *sql.DB
	opts Options
}

// NewDuckDBSource opens the DuckDB database at path; an empty path is in-memory
func NewDuckDBSource(path string, opts Options) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to open source database")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to ping source database")
	}

	return &DuckDBSource{db: db, opts: opts}, nil
}

// NewDuckDBSourceFromDB wraps an already open database
func NewDuckDBSourceFromDB(db *sql.DB, opts Options) *DuckDBSource {
	return &DuckDBSource{db: db, opts: opts}
}

// FetchTables reads base tables and their columns in declaration order
func (s *DuckDBSource) FetchTables(ctx context.Context) ([]Table, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout())
	defer cancel()

	keys, err := s.primaryKeys(ctx)
	if err != nil {
		return nil, err
	}

	schemas := s.opts.schemas("main")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(schemas)), ", ")
	args := make([]any, len(schemas))

	for i, name := range schemas {
		args[i] = name
	}

	rows, err := s.db.QueryContext(ctx, strings.Replace(duckColumnsSQL, "%s", placeholders, 1), args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to read table columns")
	}
	defer rows.Close()

	var collected []columnRow

	for rows.Next() {
		var r columnRow
		if err := rows.Scan(&r.schema, &r.table, &r.column, &r.dataType, &r.nullable); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to scan column row")
		}

		r.primaryKey = keys[r.schema+"."+r.table+"."+r.column]
		collected = append(collected, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to read table columns")
	}

	return excludeTables(groupColumns(collected), s.opts.ExcludeTables), nil
}

func (s *DuckDBSource) primaryKeys(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, duckPrimaryKeysSQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to read primary keys")
	}
	defer rows.Close()

	keys := map[string]bool{}

	for rows.Next() {
		var schemaName, table, column string
		if err := rows.Scan(&schemaName, &table, &column); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to scan primary key")
		}

		keys[schemaName+"."+table+"."+column] = true
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to read primary keys")
	}

	return keys, nil
}

// FetchProcedures is unsupported by DuckDB
func (s *DuckDBSource) FetchProcedures(context.Context) ([]Routine, error) {
	return nil, errors.New(errors.ErrTypeIntrospection, "stored procedures are unsupported by duckdb")
}

// FetchTriggers is unsupported by DuckDB
func (s *DuckDBSource) FetchTriggers(context.Context) ([]Routine, error) {
	return nil, errors.New(errors.ErrTypeIntrospection, "triggers are unsupported by duckdb")
}

// Close closes the database
func (s *DuckDBSource) Close() error {
	return s.db.Close()
}
