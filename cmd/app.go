package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/alexSpace56/data-navigator/internal/answer"
	"github.com/alexSpace56/data-navigator/internal/cache"
	"github.com/alexSpace56/data-navigator/internal/config"
	"github.com/alexSpace56/data-navigator/internal/describe"
	"github.com/alexSpace56/data-navigator/internal/embedding"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/indexer"
	"github.com/alexSpace56/data-navigator/internal/llm"
	"github.com/alexSpace56/data-navigator/internal/logging"
	"github.com/alexSpace56/data-navigator/internal/schema"
	"github.com/alexSpace56/data-navigator/internal/storage"
)

var stringOverrides = []string{"database-url", "index-backend", "index-path", "embedding-provider", "log-level"}

// app holds the loaded configuration and builds components from it
type app struct {
	cfg   *config.Config
	vocab *describe.Vocabulary
}

// loadApp reads configuration with flag overrides and sets up logging
func loadApp(cmd *cli.Command, extra map[string]interface{}) (*app, error) {
	root := cmd.Root()
	overrides := make(map[string]interface{}, len(extra)+len(stringOverrides)+2)

	for _, name := range stringOverrides {
		if root.IsSet(name) {
			overrides[name] = root.String(name)
		}
	}

	for _, name := range []string{"verbose", "debug"} {
		if root.IsSet(name) {
			overrides[name] = root.Bool(name)
		}
	}

	for k, v := range extra {
		overrides[k] = v
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration")
	}

	cfg.ExpandAllPaths()

	if cfg.Debug.Verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create directories")
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to initialize logging")
	}

	vocab, err := describe.LoadVocabulary(cfg.Describe.VocabularyFile)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, vocab: vocab}, nil
}

// provider builds the configured embedding provider, fronted by the on-disk
// vector cache unless caching is off
func (a *app) provider() (embedding.Provider, error) {
	p, err := embedding.NewProvider(embedding.Config{
		Provider:   a.cfg.Embedding.Provider,
		Model:      a.cfg.Embedding.Model,
		Dimensions: a.cfg.Embedding.Dimensions,
		BaseURL:    a.cfg.Embedding.BaseURL,
		APIKey:     a.cfg.Embedding.APIKey,
		Timeout:    config.Duration(a.cfg.Embedding.Timeout, 0),
		BatchSize:  a.cfg.Embedding.BatchSize,
	})
	if err != nil || a.cfg.Embedding.NoCache || a.cfg.Embedding.Provider == "hash" {
		return p, err
	}

	store, err := cache.NewFileStore(
		a.cfg.Embedding.CacheDir,
		a.cfg.Embedding.CacheMaxSizeMB,
		config.Duration(a.cfg.Embedding.CacheTTL, cache.DefaultTTL),
	)
	if err != nil {
		logging.WithField("dir", a.cfg.Embedding.CacheDir).WarnWithErr("Embedding cache disabled", err)
		return p, nil
	}

	return embedding.NewCachedProvider(p, store), nil
}

func (a *app) openIndex(ctx context.Context) (storage.Index, error) {
	return storage.New(ctx, a.cfg.Index)
}

func (a *app) openSource(ctx context.Context) (schema.Source, error) {
	return schema.Open(ctx, a.cfg.Source.URL, schema.Options{
		Schemas:       a.cfg.Source.Schemas,
		ExcludeTables: a.cfg.Source.ExcludeTables,
		Timeout:       config.Duration(a.cfg.Source.Timeout, 0),
	})
}

// composer returns the LLM composer when enabled, the template composer otherwise
func (a *app) composer() (answer.Composer, error) {
	template := answer.NewTemplateComposer(a.vocab.NoMatches)

	if !a.cfg.LLM.Enabled {
		return template, nil
	}

	manager, err := llm.NewFromConfig(a.cfg.LLM)
	if err != nil {
		return nil, err
	}

	return answer.NewLLMComposer(manager, template), nil
}

// sourceIndexer connects to the source database for each run, so the API can
// start while the database is still unavailable
type sourceIndexer struct {
	open      func(context.Context) (schema.Source, error)
	describer *describe.Describer
	provider  embedding.Provider
	index     storage.Index
}

func (a *app) indexer(provider embedding.Provider, index storage.Index) *sourceIndexer {
	return &sourceIndexer{
		open:      a.openSource,
		describer: describe.New(a.vocab),
		provider:  provider,
		index:     index,
	}
}

func (s *sourceIndexer) Index(ctx context.Context, opts indexer.Options) (indexer.Report, error) {
	source, err := s.open(ctx)
	if err != nil {
		return indexer.Report{}, errors.Wrap(err, errors.GetType(err), "failed to connect to source database")
	}
	defer source.Close()

	return indexer.New(source, s.describer, s.provider, s.index).Index(ctx, opts)
}
