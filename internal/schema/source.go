package schema

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

// Source reads schema objects from a live database.
// FetchTables failures are fatal for an indexing run; procedure and trigger
// failures are expected on engines that cannot introspect them.
type Source interface {
	FetchTables(ctx context.Context) ([]Table, error)
	FetchProcedures(ctx context.Context) ([]Routine, error)
	FetchTriggers(ctx context.Context) ([]Routine, error)
	Close() error
}

// Options narrows what a source reads
type Options struct {
	Schemas       []string
	ExcludeTables []string
	Timeout       time.Duration
}

const defaultTimeout = 30 * time.Second

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return defaultTimeout
	}

	return o.Timeout
}

func (o Options) schemas(fallback string) []string {
	var out []string

	for _, s := range o.Schemas {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	if len(out) == 0 {
		return []string{fallback}
	}

	return out
}

// Open picks a source implementation from the URL scheme
func Open(ctx context.Context, url string, opts Options) (Source, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgresSource(ctx, url, opts)
	case strings.HasPrefix(url, "duckdb://"):
		return NewDuckDBSource(strings.TrimPrefix(url, "duckdb://"), opts)
	case isDuckDBFile(url):
		return NewDuckDBSource(url, opts)
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported database url scheme: %s", redact(url)).
			WithSuggestion("Use postgres://, postgresql://, duckdb:// or a path ending in .duckdb").
			WithSuggestion("Set DATABASE_URL to the database whose schema should be indexed")
	}
}

func isDuckDBFile(url string) bool {
	switch strings.ToLower(filepath.Ext(url)) {
	case ".duckdb", ".db":
		return !strings.Contains(url, "://")
	default:
		return false
	}
}

func redact(url string) string {
	if at := strings.LastIndex(url, "@"); at >= 0 {
		if scheme := strings.Index(url, "://"); scheme >= 0 && scheme < at {
			return url[:scheme+3] + "****" + url[at:]
		}
	}

	return url
}

// excludeTables drops tables named in the exclusion list
func excludeTables(tables []Table, exclude []string) []Table {
	if len(exclude) == 0 {
		return tables
	}

	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[strings.ToLower(strings.TrimSpace(name))] = true
	}

	kept := tables[:0]
	for _, t := range tables {
		if skip[strings.ToLower(t.Name)] || skip[strings.ToLower(t.Schema+"."+t.Name)] {
			continue
		}

		kept = append(kept, t)
	}

	return kept
}

// columnRow is one row of a column listing, grouped into tables in order
type columnRow struct {
	schema     string
	table      string
	column     string
	dataType   string
	nullable   bool
	primaryKey bool
}

// groupColumns folds ordered column rows into tables, keeping first-seen order
func groupColumns(rows []columnRow) []Table {
	var tables []Table

	index := map[string]int{}

	for _, r := range rows {
		key := r.schema + "." + r.table

		i, ok := index[key]
		if !ok {
			i = len(tables)
			index[key] = i
			tables = append(tables, Table{Schema: r.schema, Name: r.table})
		}

		tables[i].Columns = append(tables[i].Columns, Column{
			Table:      r.table,
			Name:       r.column,
			DataType:   r.dataType,
			Nullable:   r.nullable,
			PrimaryKey: r.primaryKey,
		})
	}

	return tables
}
