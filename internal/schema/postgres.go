package schema

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

const pgColumnsSQL = `
SELECT c.table_schema, c.table_name, c.column_name, c.data_type,
       c.is_nullable = 'YES' AS nullable,
       EXISTS (
           SELECT 1
           FROM information_schema.table_constraints tc
           JOIN information_schema.key_column_usage kcu
             ON kcu.constraint_name = tc.constraint_name
            AND kcu.table_schema = tc.table_schema
            AND kcu.table_name = tc.table_name
           WHERE tc.constraint_type = 'PRIMARY KEY'
             AND tc.table_schema = c.table_schema
             AND tc.table_name = c.table_name
             AND kcu.column_name = c.column_name
       ) AS primary_key
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema
 AND t.table_name = c.table_name
WHERE t.table_type = 'BASE TABLE'
  AND c.table_schema = ANY($1)
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

const pgProceduresSQL = `
SELECT n.nspname, p.proname, pg_get_functiondef(p.oid)
FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
WHERE p.prokind IN ('p', 'f')
  AND n.nspname = ANY($1)
  AND NOT EXISTS (
      SELECT 1 FROM pg_depend d WHERE d.objid = p.oid AND d.deptype = 'e'
  )
ORDER BY n.nspname, p.proname`

const pgTriggersSQL = `
SELECT n.nspname, t.tgname, c.relname,
       pg_get_triggerdef(t.oid) || E'\n' || COALESCE(pg_get_functiondef(t.tgfoid), '')
FROM pg_trigger t
JOIN pg_class c ON c.oid = t.tgrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE NOT t.tgisinternal
  AND n.nspname = ANY($1)
ORDER BY n.nspname, t.tgname`

// PostgresSource introspects a PostgreSQL database through information_schema and pg_catalog
type PostgresSource struct {
	pool *pgxpool.Pool
	opts Options
}

// NewPostgresSource connects to the database at url
func NewPostgresSource(ctx context.Context, url string, opts Options) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to connect to source database").
			WithSuggestion("Check DATABASE_URL")
	}

	return &PostgresSource{pool: pool, opts: opts}, nil
}

// FetchTables reads base tables and their columns in declaration order
func (s *PostgresSource) FetchTables(ctx context.Context) ([]Table, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout())
	defer cancel()

	rows, err := s.pool.Query(ctx, pgColumnsSQL, s.opts.schemas("public"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to read table columns")
	}
	defer rows.Close()

	var collected []columnRow

	for rows.Next() {
		var r columnRow
		if err := rows.Scan(&r.schema, &r.table, &r.column, &r.dataType, &r.nullable, &r.primaryKey); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to scan column row")
		}

		collected = append(collected, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to read table columns")
	}

	return excludeTables(groupColumns(collected), s.opts.ExcludeTables), nil
}

// FetchProcedures reads user-defined procedures and functions with their source
func (s *PostgresSource) FetchProcedures(ctx context.Context) ([]Routine, error) {
	return s.routines(ctx, pgProceduresSQL, false, "procedures")
}

// FetchTriggers reads user triggers with their definition and function body
func (s *PostgresSource) FetchTriggers(ctx context.Context) ([]Routine, error) {
	return s.routines(ctx, pgTriggersSQL, true, "triggers")
}

func (s *PostgresSource) routines(ctx context.Context, query string, withTable bool, what string) ([]Routine, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout())
	defer cancel()

	rows, err := s.pool.Query(ctx, query, s.opts.schemas("public"))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeIntrospection, "failed to list %s", what)
	}
	defer rows.Close()

	var routines []Routine

	for rows.Next() {
		var r Routine

		dest := []any{&r.Schema, &r.Name}
		if withTable {
			dest = append(dest, &r.Table)
		}

		dest = append(dest, &r.Definition)

		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeIntrospection, "failed to scan %s", what)
		}

		routines = append(routines, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeIntrospection, "failed to list %s", what)
	}

	return routines, nil
}

// Close releases the connection pool
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}
