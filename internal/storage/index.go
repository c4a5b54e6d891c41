package storage

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

// Metadata is the filterable part of an indexed document
type Metadata struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	TableName string `json:"table_name,omitempty"`
}

// Document is one indexed description with its embedding
type Document struct {
	ID        string    `json:"id"`
	Text      string    `json:"document"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"-"`
}

// Hit is a document returned from a nearest-neighbour query
type Hit struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Run records one indexing run
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Documents  int       `json:"documents"`
	Cleared    bool      `json:"cleared"`
}

// Stats summarises the contents of an index
type Stats struct {
	Backend   string         `json:"backend"`
	Documents int            `json:"documents"`
	ByType    map[string]int `json:"by_type"`
	LastRun   *Run           `json:"last_run,omitempty"`
}

// Index stores documents and answers nearest-neighbour queries by cosine similarity.
// Upsert and Replace are atomic: concurrent readers see the collection either
// entirely before or entirely after the write.
type Index interface {
	Initialize(ctx context.Context) error
	// Upsert overwrites documents with matching ids and adds the rest
	Upsert(ctx context.Context, docs []Document) error
	// Replace drops the whole collection and writes docs in its place
	Replace(ctx context.Context, docs []Document) error
	// Query returns up to limit documents ordered by descending similarity
	Query(ctx context.Context, vector []float32, limit int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// RunRecorder is implemented by indexes that persist indexing runs
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// validateDocuments rejects empty ids, empty embeddings and duplicate ids in one batch
func validateDocuments(docs []Document, dim int) error {
	seen := make(map[string]bool, len(docs))

	for _, d := range docs {
		if d.ID == "" {
			return errors.New(errors.ErrTypeValidation, "document id is required")
		}

		if seen[d.ID] {
			return errors.Newf(errors.ErrTypeValidation, "duplicate document id %s", d.ID)
		}

		seen[d.ID] = true

		if len(d.Embedding) == 0 {
			return errors.Newf(errors.ErrTypeValidation, "document %s has no embedding", d.ID)
		}

		if dim > 0 && len(d.Embedding) != dim {
			return errors.Newf(
				errors.ErrTypeVectorIndex,
				"document %s has dimension %d, index expects %d",
				d.ID,
				len(d.Embedding),
				dim,
			)
		}
	}

	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b, 0 for zero vectors
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// rankHits orders hits by descending score, then id for stable output, and truncates
func rankHits(hits []Hit, limit int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}

		return hits[i].Document.ID < hits[j].Document.ID
	})

	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	return hits
}
