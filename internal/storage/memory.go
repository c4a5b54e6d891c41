package storage

import (
	"context"
	"sync"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

// MemoryIndex keeps documents in a map; Replace swaps the whole map under the lock
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	docs    map[string]Document
	lastRun *Run
}

// NewMemoryIndex creates an empty in-process index; dim 0 accepts any dimension
func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{dim: dim, docs: map[string]Document{}}
}

func (m *MemoryIndex) Initialize(context.Context) error { return nil }

func (m *MemoryIndex) Upsert(_ context.Context, docs []Document) error {
	if err := validateDocuments(docs, m.dim); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range docs {
		m.docs[d.ID] = d
	}

	return nil
}

func (m *MemoryIndex) Replace(_ context.Context, docs []Document) error {
	if err := validateDocuments(docs, m.dim); err != nil {
		return err
	}

	next := make(map[string]Document, len(docs))
	for _, d := range docs {
		next[d.ID] = d
	}

	m.mu.Lock()
	m.docs = next
	m.mu.Unlock()

	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		return []Hit{}, nil
	}

	if m.dim > 0 && len(vector) != m.dim {
		return nil, errors.Newf(
			errors.ErrTypeVectorIndex,
			"query vector has dimension %d, index expects %d",
			len(vector),
			m.dim,
		)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, len(m.docs))
	for _, d := range m.docs {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "query cancelled")
		}

		hits = append(hits, Hit{Document: d, Score: CosineSimilarity(vector, d.Embedding)})
	}

	return rankHits(hits, limit), nil
}

func (m *MemoryIndex) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.docs), nil
}

func (m *MemoryIndex) Clear(context.Context) error {
	m.mu.Lock()
	m.docs = map[string]Document{}
	m.mu.Unlock()

	return nil
}

func (m *MemoryIndex) Stats(context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{Backend: "memory", Documents: len(m.docs), ByType: map[string]int{}}
	for _, d := range m.docs {
		stats.ByType[d.Metadata.Type]++
	}

	if m.lastRun != nil {
		run := *m.lastRun
		stats.LastRun = &run
	}

	return stats, nil
}

// RecordRun keeps only the most recent run
func (m *MemoryIndex) RecordRun(_ context.Context, run Run) error {
	m.mu.Lock()
	m.lastRun = &run
	m.mu.Unlock()

	return nil
}

func (m *MemoryIndex) Close() error { return nil }
