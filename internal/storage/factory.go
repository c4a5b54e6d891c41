package storage

import (
	"context"

	"github.com/alexSpace56/data-navigator/internal/config"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/logging"
)

const (
	BackendMemory   = "memory"
	BackendDuckDB   = "duckdb"
	BackendPgVector = "pgvector"
)

// New opens and initializes the backend named in cfg.Backend
func New(ctx context.Context, cfg config.IndexConfig) (Index, error) {
	var (
		index Index
		err   error
	)

	switch cfg.Backend {
	case BackendMemory:
		index = NewMemoryIndex(cfg.Dimension)
	case BackendDuckDB, "":
		index, err = NewDuckDBIndex(cfg.Path, cfg.Dimension)
	case BackendPgVector:
		index, err = NewPgVectorIndex(ctx, PgVectorConfig{
			DSN:       cfg.DSN,
			Table:     cfg.Table,
			Dimension: cfg.Dimension,
			MaxConns:  int32(cfg.MaxConns),
		})
	default:
		return nil, errors.NewConfigError("unsupported index backend: "+cfg.Backend, "index.backend").
			WithSuggestion("Use one of: memory, duckdb, pgvector")
	}

	if err != nil {
		return nil, err
	}

	if err := index.Initialize(ctx); err != nil {
		_ = index.Close()
		return nil, err
	}

	logging.WithFields(map[string]interface{}{
		"backend":   cfg.Backend,
		"dimension": cfg.Dimension,
	}).Debug("Vector index ready")

	return index, nil
}
