package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/alexSpace56/data-navigator/internal/errors"
)

// DuckDBIndex implements Index on a local DuckDB file
type DuckDBIndex struct {
	db   *sql.DB
	path string
	dim  int
}

// NewDuckDBIndex opens (or creates) the index file with connection pooling
func NewDuckDBIndex(dbPath string, dim int) (*DuckDBIndex, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create index directory")
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to open index")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to ping index")
	}

	return &DuckDBIndex{db: db, path: dbPath, dim: dim}, nil
}

// Initialize creates the index schema using migrations
func (d *DuckDBIndex) Initialize(ctx context.Context) error {
	if err := NewMigrationManager(d.db).MigrateUp(ctx); err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to migrate index")
	}

	return nil
}

// Upsert deletes rows with matching ids and inserts docs in one transaction
func (d *DuckDBIndex) Upsert(ctx context.Context, docs []Document) error {
	if err := validateDocuments(docs, d.dim); err != nil {
		return err
	}

	return d.write(ctx, docs, false)
}

// Replace deletes every row and inserts docs in one transaction
func (d *DuckDBIndex) Replace(ctx context.Context, docs []Document) error {
	if err := validateDocuments(docs, d.dim); err != nil {
		return err
	}

	return d.write(ctx, docs, true)
}

func (d *DuckDBIndex) write(ctx context.Context, docs []Document, replace bool) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
			return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to clear documents")
		}
	} else if err := deleteIDs(ctx, tx, docs); err != nil {
		return err
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, kind, name, table_name, document, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, CAST(? AS FLOAT[]))`)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to prepare insert")
	}
	defer insert.Close()

	for _, doc := range docs {
		metadataJSON, _ := json.Marshal(doc.Metadata)
		embeddingJSON, _ := json.Marshal(doc.Embedding)

		if _, err := insert.ExecContext(ctx,
			doc.ID,
			doc.Metadata.Type,
			doc.Metadata.Name,
			nullString(doc.Metadata.TableName),
			doc.Text,
			string(metadataJSON),
			string(embeddingJSON),
		); err != nil {
			return errors.Wrapf(err, errors.ErrTypeVectorIndex, "failed to insert document %s", doc.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to commit documents")
	}

	return nil
}

func deleteIDs(ctx context.Context, tx *sql.Tx, docs []Document) error {
	stmt, err := tx.PrepareContext(ctx, "DELETE FROM documents WHERE id = ?")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to prepare delete")
	}
	defer stmt.Close()

	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, doc.ID); err != nil {
			return errors.Wrapf(err, errors.ErrTypeVectorIndex, "failed to delete document %s", doc.ID)
		}
	}

	return nil
}

// Query ranks documents by list_cosine_similarity against vector
func (d *DuckDBIndex) Query(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		return []Hit{}, nil
	}

	if d.dim > 0 && len(vector) != d.dim {
		return nil, errors.Newf(
			errors.ErrTypeVectorIndex,
			"query vector has dimension %d, index expects %d",
			len(vector),
			d.dim,
		)
	}

	vectorJSON, _ := json.Marshal(vector)

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, document, metadata,
		       COALESCE(list_cosine_similarity(embedding, CAST(? AS FLOAT[])), 0) AS score
		FROM documents
		ORDER BY score DESC, id ASC
		LIMIT %d`, limit), string(vectorJSON))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to query documents")
	}
	defer rows.Close()

	hits := []Hit{}

	for rows.Next() {
		var (
			hit      Hit
			metadata sql.NullString
		)

		if err := rows.Scan(&hit.Document.ID, &hit.Document.Text, &metadata, &hit.Score); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to scan document")
		}

		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &hit.Document.Metadata); err != nil {
				return nil, errors.Wrapf(err, errors.ErrTypeVectorIndex, "invalid metadata for %s", hit.Document.ID)
			}
		}

		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to read documents")
	}

	return hits, nil
}

func (d *DuckDBIndex) Count(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to count documents")
	}

	return count, nil
}

func (d *DuckDBIndex) Clear(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to clear documents")
	}

	return nil
}

func (d *DuckDBIndex) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Backend: "duckdb", ByType: map[string]int{}}

	rows, err := d.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM documents GROUP BY kind")
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

	err = d.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, documents, cleared
		FROM index_runs
		ORDER BY finished_at DESC
		LIMIT 1`).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Documents, &run.Cleared)

	switch {
	case err == nil:
		stats.LastRun = &run
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to query last run")
	}

	return stats, nil
}

// RecordRun stores one indexing run
func (d *DuckDBIndex) RecordRun(ctx context.Context, run Run) error {
	if _, err := d.db.ExecContext(ctx,
		"INSERT INTO index_runs (id, started_at, finished_at, documents, cleared) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.StartedAt, run.FinishedAt, run.Documents, run.Cleared,
	); err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to record index run")
	}

	return nil
}

// Path returns the index file location
func (d *DuckDBIndex) Path() string {
	return d.path
}

func (d *DuckDBIndex) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
