// Package indexer reads the live schema, describes every object, embeds the
// descriptions in one batch and writes them to the vector index.
package indexer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alexSpace56/data-navigator/internal/describe"
	"github.com/alexSpace56/data-navigator/internal/embedding"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/logging"
	"github.com/alexSpace56/data-navigator/internal/schema"
	"github.com/alexSpace56/data-navigator/internal/storage"
)

// Options controls one indexing run
type Options struct {
	// Clear atomically replaces the whole collection instead of upserting by id
	Clear bool
}

// Report summarises one indexing run
type Report struct {
	RunID      string        `json:"run_id"`
	Documents  int           `json:"documents"`
	Tables     int           `json:"tables"`
	Columns    int           `json:"columns"`
	Procedures int           `json:"procedures"`
	Triggers   int           `json:"triggers"`
	Cleared    bool          `json:"cleared"`
	Duration   time.Duration `json:"duration"`
}

// Indexer wires a schema source to an embedding provider and a vector index
type Indexer struct {
	source    schema.Source
	describer *describe.Describer
	provider  embedding.Provider
	index     storage.Index
	now       func() time.Time
}

// New creates an indexer; a nil describer uses the default vocabulary
func New(source schema.Source, describer *describe.Describer, provider embedding.Provider, index storage.Index) *Indexer {
	if describer == nil {
		describer = describe.New(nil)
	}

	return &Indexer{
		source:    source,
		describer: describer,
		provider:  provider,
		index:     index,
		now:       time.Now,
	}
}

// Index runs the full pipeline and returns the number of documents written
func (ix *Indexer) Index(ctx context.Context, opts Options) (Report, error) {
	var report Report

	err := logging.LoggerMiddleware("index", func() error {
		var err error
		report, err = ix.run(ctx, opts)

		return err
	})

	return report, err
}

func (ix *Indexer) run(ctx context.Context, opts Options) (Report, error) {
	started := ix.now()

	docs, report, err := ix.build(ctx)
	if err != nil {
		return Report{}, err
	}

	report.Cleared = opts.Clear

	if len(docs) > 0 {
		if err := ix.embed(ctx, docs); err != nil {
			return Report{}, err
		}
	}

	if opts.Clear {
		err = ix.index.Replace(ctx, docs)
	} else {
		err = ix.index.Upsert(ctx, docs)
	}

	if err != nil {
		return Report{}, errors.Wrap(err, errors.GetType(err), "failed to write documents")
	}

	finished := ix.now()
	report.RunID = uuid.New().String()
	report.Documents = len(docs)
	report.Duration = finished.Sub(started)

	if recorder, ok := ix.index.(storage.RunRecorder); ok {
		run := storage.Run{
			ID:         report.RunID,
			StartedAt:  started,
			FinishedAt: finished,
			Documents:  report.Documents,
			Cleared:    report.Cleared,
		}
		if err := recorder.RecordRun(ctx, run); err != nil {
			logging.WithError(err).Warn("Failed to record index run")
		}
	}

	logging.WithFields(map[string]interface{}{
		"documents":  report.Documents,
		"tables":     report.Tables,
		"columns":    report.Columns,
		"procedures": report.Procedures,
		"triggers":   report.Triggers,
		"cleared":    report.Cleared,
		"provider":   ix.provider.Name(),
	}).Info("Indexing finished")

	return report, nil
}

// Documents builds the document set without embedding or writing it
func (ix *Indexer) Documents(ctx context.Context) ([]storage.Document, error) {
	docs, _, err := ix.build(ctx)
	return docs, err
}

func (ix *Indexer) build(ctx context.Context) ([]storage.Document, Report, error) {
	var report Report

	tables, err := ix.source.FetchTables(ctx)
	if err != nil {
		if errors.GetType(err) == errors.ErrTypeTimeout {
			return nil, report, err
		}

		return nil, report, errors.Wrap(err, errors.ErrTypeSchemaFetch, "failed to fetch tables")
	}

	procedures := bestEffort(ctx, "procedures", ix.source.FetchProcedures)
	triggers := bestEffort(ctx, "triggers", ix.source.FetchTriggers)

	b := newBuilder()

	for _, t := range tables {
		b.add(TableID(t.Name), ix.describer.Table(t), storage.Metadata{
			Type: string(schema.KindTable),
			Name: t.Name,
		})
		report.Tables++

		for _, c := range t.Columns {
			b.add(ColumnID(t.Name, c.Name), ix.describer.Column(c), storage.Metadata{
				Type:      string(schema.KindColumn),
				Name:      c.Name,
				TableName: t.Name,
			})
			report.Columns++
		}
	}

	for _, p := range procedures {
		b.add(ProcedureID(p.Name), ix.describer.Procedure(p), storage.Metadata{
			Type: string(schema.KindProcedure),
			Name: p.Name,
		})
		report.Procedures++
	}

	for _, g := range triggers {
		b.add(TriggerID(g.Name), ix.describer.Trigger(g), storage.Metadata{
			Type:      string(schema.KindTrigger),
			Name:      g.Name,
			TableName: g.Table,
		})
		report.Triggers++
	}

	if b.duplicates > 0 {
		logging.WithField("duplicates", b.duplicates).Warn("Skipped documents with repeated ids")
	}

	return b.docs, report, nil
}

// embed fills every document's embedding with exactly one provider call
func (ix *Indexer) embed(ctx context.Context, docs []storage.Document) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	vectors, err := ix.provider.Embed(ctx, texts)
	if err != nil {
		if errors.GetType(err) == errors.ErrTypeTimeout {
			return err
		}

		return errors.Wrap(err, errors.ErrTypeEmbedding, "failed to embed descriptions")
	}

	if err := embedding.Validate(texts, vectors, ix.provider.Dimensions()); err != nil {
		return err
	}

	for i := range docs {
		docs[i].Embedding = vectors[i]
	}

	return nil
}

// bestEffort degrades a failing fetch to an empty list, logging why
func bestEffort(ctx context.Context, what string, fetch func(context.Context) ([]schema.Routine, error)) []schema.Routine {
	routines, err := fetch(ctx)
	if err != nil {
		logging.WithFields(map[string]interface{}{
			"objects": what,
			"type":    errors.GetType(err),
		}).WarnWithErr("Introspection unavailable, continuing without it", err)

		return nil
	}

	return routines
}

// builder keeps the first document for each id
type builder struct {
	docs       []storage.Document
	seen       map[string]bool
	duplicates int
}

func newBuilder() *builder {
	return &builder{seen: map[string]bool{}}
}

func (b *builder) add(id, text string, metadata storage.Metadata) {
	if b.seen[id] {
		b.duplicates++
		return
	}

	b.seen[id] = true
	b.docs = append(b.docs, storage.Document{ID: id, Text: text, Metadata: metadata})
}

func TableID(table string) string { return "table_" + table }

func ColumnID(table, column string) string { return "col_" + table + "_" + column }

func ProcedureID(name string) string { return "proc_" + name }

func TriggerID(name string) string { return "trig_" + name }
