package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PgVectorConfig configures a PgVectorIndex.
// The database must allow CREATE EXTENSION vector or already have it installed.
type PgVectorConfig struct {
	DSN       string
	Table     string
	Dimension int
	MaxConns  int32
}

// PgVectorIndex implements Index on PostgreSQL with the pgvector extension
type PgVectorIndex struct {
	pool  *pgxpool.Pool
	table string
	dim   int
}

// NewPgVectorIndex connects to the database; tables are created by Initialize
func NewPgVectorIndex(ctx context.Context, cfg PgVectorConfig) (*PgVectorIndex, error) {
	if cfg.DSN == "" {
		return nil, errors.NewConfigError("pgvector index requires a DSN", "index.dsn")
	}

	if cfg.Dimension <= 0 {
		return nil, errors.NewConfigError("pgvector index requires a positive dimension", "index.dimension")
	}

	table := cfg.Table
	if table == "" {
		table = "schema_documents"
	}

	if !identifierPattern.MatchString(table) {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid table name %q", table), "index.table")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "invalid pgvector DSN")
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to connect to pgvector")
	}

	return &PgVectorIndex{pool: pool, table: table, dim: cfg.Dimension}, nil
}

func (p *PgVectorIndex) runsTable() string {
	return p.table + "_runs"
}

func (p *PgVectorIndex) Initialize(ctx context.Context) error {
	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			table_name TEXT,
			document TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL,
			indexed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, p.table, p.dim),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			documents INTEGER NOT NULL,
			cleared BOOLEAN NOT NULL
		)`, p.runsTable()),
	}

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to initialize pgvector index")
		}
	}

	return nil
}

func (p *PgVectorIndex) Upsert(ctx context.Context, docs []Document) error {
	if err := validateDocuments(docs, p.dim); err != nil {
		return err
	}

	return p.write(ctx, docs, false)
}

func (p *PgVectorIndex) Replace(ctx context.Context, docs []Document) error {
	if err := validateDocuments(docs, p.dim); err != nil {
		return err
	}

	return p.write(ctx, docs, true)
}

func (p *PgVectorIndex) write(ctx context.Context, docs []Document, replace bool) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if replace {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", p.table)); err != nil {
			return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to clear documents")
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, kind, name, table_name, document, metadata, embedding)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6::jsonb, $7)
		ON CONFLICT (id) DO UPDATE
		SET kind = EXCLUDED.kind,
		    name = EXCLUDED.name,
		    table_name = EXCLUDED.table_name,
		    document = EXCLUDED.document,
		    metadata = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding,
		    indexed_at = now()`, p.table)

	batch := &pgx.Batch{}

	for _, doc := range docs {
		metadataJSON, _ := json.Marshal(doc.Metadata)
		batch.Queue(query,
			doc.ID,
			doc.Metadata.Type,
			doc.Metadata.Name,
			doc.Metadata.TableName,
			doc.Text,
			string(metadataJSON),
			pgvector.NewVector(doc.Embedding),
		)
	}

	results := tx.SendBatch(ctx, batch)

	for _, doc := range docs {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return errors.Wrapf(err, errors.ErrTypeVectorIndex, "failed to write document %s", doc.ID)
		}
	}

	if err := results.Close(); err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to flush documents")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to commit documents")
	}

	return nil
}

// Query orders by cosine distance; score is 1 - distance
func (p *PgVectorIndex) Query(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		return []Hit{}, nil
	}

	if len(vector) != p.dim {
		return nil, errors.Newf(
			errors.ErrTypeVectorIndex,
			"query vector has dimension %d, index expects %d",
			len(vector),
			p.dim,
		)
	}

	query := fmt.Sprintf(`
		SELECT id, document, metadata, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance ASC, id ASC
		LIMIT $2`, p.table)

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to query documents")
	}
	defer rows.Close()

	hits := []Hit{}

	for rows.Next() {
		var (
			hit      Hit
			metadata []byte
			distance float64
		)

		if err := rows.Scan(&hit.Document.ID, &hit.Document.Text, &metadata, &distance); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to scan document")
		}

		if err := json.Unmarshal(metadata, &hit.Document.Metadata); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeVectorIndex, "invalid metadata for %s", hit.Document.ID)
		}

		hit.Score = 1 - distance
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to read documents")
	}

	return hits, nil
}

func (p *PgVectorIndex) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", p.table)).Scan(&count); err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to count documents")
	}

	return count, nil
}

func (p *PgVectorIndex) Clear(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", p.table)); err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to clear documents")
	}

	return nil
}

func (p *PgVectorIndex) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Backend: "pgvector", ByType: map[string]int{}}

	rows, err := p.pool.Query(ctx, fmt.Sprintf("SELECT kind, COUNT(*) FROM %s GROUP BY kind", p.table))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to query stats")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind  string
			count int
		)

		if err := rows.Scan(&kind, &count); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to scan stats")
		}

		stats.ByType[kind] = count
		stats.Documents += count
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to read stats")
	}

	var run Run

	err = p.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, started_at, finished_at, documents, cleared
		FROM %s
		ORDER BY finished_at DESC
		LIMIT 1`, p.runsTable())).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Documents, &run.Cleared)

	switch {
	case err == nil:
		stats.LastRun = &run
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to query last run")
	}

	return stats, nil
}

func (p *PgVectorIndex) RecordRun(ctx context.Context, run Run) error {
	if _, err := p.pool.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (id, started_at, finished_at, documents, cleared) VALUES ($1, $2, $3, $4, $5)", p.runsTable()),
		run.ID, run.StartedAt, run.FinishedAt, run.Documents, run.Cleared,
	); err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to record index run")
	}

	return nil
}

func (p *PgVectorIndex) Close() error {
	p.pool.Close()
	return nil
}
