package indexer

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexSpace56/data-navigator/internal/describe"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/storage"
	"github.com/alexSpace56/data-navigator/internal/testutil"
)

func newFixture(opts ...testutil.MockOption) (*Indexer, *testutil.MockSource, *testutil.MockProvider, *storage.MemoryIndex) {
	source := testutil.NewMockSource(opts...)
	provider := testutil.NewMockProvider(testutil.TestDimension)
	index := storage.NewMemoryIndex(testutil.TestDimension)

	return New(source, describe.New(nil), provider, index), source, provider, index
}

func TestIndexBuildsDocumentsInOrder(t *testing.T) {
	ix, _, provider, index := newFixture(
		testutil.WithTables(testutil.WellRepairStatus()),
		testutil.WithProcedures(testutil.RepairDurationProcedure()),
		testutil.WithTriggers(testutil.TouchTrigger()),
	)

	report, err := ix.Index(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 6, report.Documents)
	assert.Equal(t, 1, report.Tables)
	assert.Equal(t, 3, report.Columns)
	assert.Equal(t, 1, report.Procedures)
	assert.Equal(t, 1, report.Triggers)
	assert.False(t, report.Cleared)
	assert.NotEmpty(t, report.RunID)

	require.Equal(t, 1, provider.Calls(), "all descriptions are embedded in one batch")
	batch := provider.Batches()[0]
	require.Len(t, batch, 6)
	assert.Equal(t, "Table well_repair_status. Contains fields: id, status, repair_date.", batch[0])
	assert.Equal(t, "Unique identifier. Primary key of the table.", batch[1])
	assert.Equal(t, "Procedure calc_repair_duration. Purpose: Calculates the duration of well repair work", batch[4])
	assert.Equal(t, "Trigger trg_touch_updated_at. Purpose: Automatically updates the last modification time", batch[5])

	count, err := index.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	stats, err := index.Stats(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats.LastRun)
	assert.Equal(t, report.RunID, stats.LastRun.ID)
	assert.Equal(t, map[string]int{"table": 1, "column": 3, "procedure": 1, "trigger": 1}, stats.ByType)
}

func TestDocumentIDs(t *testing.T) {
	ix, _, _, _ := newFixture(
		testutil.WithTables(testutil.WellRepairStatus()),
		testutil.WithProcedures(testutil.RepairDurationProcedure()),
		testutil.WithTriggers(testutil.TouchTrigger()),
	)

	docs, err := ix.Documents(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	assert.Equal(t, []string{
		"table_well_repair_status",
		"col_well_repair_status_id",
		"col_well_repair_status_status",
		"col_well_repair_status_repair_date",
		"proc_calc_repair_duration",
		"trig_trg_touch_updated_at",
	}, ids)

	assert.Equal(t, "well_repair_status", docs[1].Metadata.TableName)
	assert.Equal(t, "column", docs[1].Metadata.Type)
	assert.Empty(t, docs[0].Metadata.TableName)
	assert.Nil(t, docs[0].Embedding, "Documents does not embed")
}

func TestIndexIsIdempotent(t *testing.T) {
	ix, _, _, _ := newFixture(testutil.WithTables(testutil.WellRepairStatus(), testutil.Wells()))
	ctx := context.Background()

	pairs := func() []string {
		docs, err := ix.Documents(ctx)
		require.NoError(t, err)

		out := make([]string, len(docs))
		for i, d := range docs {
			out[i] = d.ID + "|" + d.Text
		}
		sort.Strings(out)

		return out
	}

	first := pairs()
	_, err := ix.Index(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, first, pairs())

	_, err = ix.Index(ctx, Options{})
	require.NoError(t, err)

	count, err := ix.index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(first), count, "re-indexing overwrites by id")
}

func TestIndexDegradesWhenRoutinesUnavailable(t *testing.T) {
	ix, source, _, _ := newFixture(
		testutil.WithTables(testutil.WellRepairStatus()),
		testutil.WithError(testutil.OpProcedures, testutil.ErrIntrospection),
		testutil.WithError(testutil.OpTriggers, errors.New(errors.ErrTypeNetwork, "connection reset")),
	)

	report, err := ix.Index(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Documents)
	assert.Zero(t, report.Procedures)
	assert.Zero(t, report.Triggers)
	assert.Equal(t, 1, source.CallCount(testutil.OpProcedures))
	assert.Equal(t, 1, source.CallCount(testutil.OpTriggers))
}

func TestIndexFailsWhenTablesUnavailable(t *testing.T) {
	ix, _, provider, index := newFixture(
		testutil.WithError(testutil.OpTables, errors.New(errors.ErrTypeNetwork, "connection refused")),
	)

	_, err := ix.Index(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeSchemaFetch, errors.GetType(err))
	assert.Zero(t, provider.Calls())

	count, _ := index.Count(context.Background())
	assert.Zero(t, count)
}

func TestIndexEmptySchema(t *testing.T) {
	ix, _, provider, _ := newFixture()

	report, err := ix.Index(context.Background(), Options{})
	require.NoError(t, err)
	assert.Zero(t, report.Documents)
	assert.Zero(t, provider.Calls(), "nothing to embed")
}

func TestIndexEmbeddingFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider *testutil.MockProvider
		expected errors.ErrorType
	}{
		{
			name:     "provider error",
			provider: testutil.NewMockProvider(testutil.TestDimension, testutil.WithEmbedError(assert.AnError)),
			expected: errors.ErrTypeEmbedding,
		},
		{
			name: "wrong count",
			provider: testutil.NewMockProvider(testutil.TestDimension, testutil.WithVectors(func(texts []string) [][]float32 {
				return [][]float32{make([]float32, testutil.TestDimension)}
			})),
			expected: errors.ErrTypeEmbedding,
		},
		{
			name: "timeout",
			provider: testutil.NewMockProvider(testutil.TestDimension,
				testutil.WithEmbedError(errors.New(errors.ErrTypeTimeout, "embedding timed out"))),
			expected: errors.ErrTypeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := testutil.NewMockSource(testutil.WithTables(testutil.WellRepairStatus()))
			index := storage.NewMemoryIndex(testutil.TestDimension)

			_, err := New(source, nil, tt.provider, index).Index(context.Background(), Options{})
			require.Error(t, err)
			assert.Equal(t, tt.expected, errors.GetType(err))

			count, _ := index.Count(context.Background())
			assert.Zero(t, count, "nothing is written when embedding fails")
		})
	}
}

func TestIndexClearReplacesCollection(t *testing.T) {
	ix, source, _, index := newFixture(testutil.WithTables(testutil.WellRepairStatus(), testutil.Wells()))
	ctx := context.Background()

	_, err := ix.Index(ctx, Options{})
	require.NoError(t, err)

	source.SetTables(testutil.Wells())

	report, err := ix.Index(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Documents)

	count, _ := index.Count(ctx)
	assert.Equal(t, 8, count, "upsert keeps documents of dropped tables")

	report, err = ix.Index(ctx, Options{Clear: true})
	require.NoError(t, err)
	assert.True(t, report.Cleared)

	count, _ = index.Count(ctx)
	assert.Equal(t, 4, count)
}

func TestIndexSkipsDuplicateIDs(t *testing.T) {
	ix, _, _, _ := newFixture(testutil.WithTables(testutil.WellRepairStatus(), testutil.WellRepairStatus()))

	report, err := ix.Index(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Documents)
	assert.Equal(t, 2, report.Tables)
}
