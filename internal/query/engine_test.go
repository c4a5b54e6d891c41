package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexSpace56/data-navigator/internal/describe"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/indexer"
	"github.com/alexSpace56/data-navigator/internal/storage"
	"github.com/alexSpace56/data-navigator/internal/testutil"
)

func indexedEngine(t *testing.T) (*SearchEngine, *testutil.MockProvider, *storage.MemoryIndex) {
	t.Helper()

	source := testutil.NewMockSource(
		testutil.WithTables(testutil.WellRepairStatus(), testutil.Wells()),
		testutil.WithProcedures(testutil.RepairDurationProcedure()),
		testutil.WithTriggers(testutil.TouchTrigger()),
	)
	provider := testutil.NewMockProvider(testutil.TestDimension)
	index := storage.NewMemoryIndex(testutil.TestDimension)

	_, err := indexer.New(source, describe.New(nil), provider, index).Index(context.Background(), indexer.Options{})
	require.NoError(t, err)

	return NewSearchEngine(provider, index), provider, index
}

func TestSearchLimits(t *testing.T) {
	engine, _, index := indexedEngine(t)
	ctx := context.Background()

	size, err := index.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, size)

	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{"default", -1, DefaultLimit},
		{"explicit five", 5, 5},
		{"one", 1, 1},
		{"larger than index", 100, size},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Search(ctx, testutil.TestQuestion, SearchOptions{Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, result.Matches, tt.expected)

			for i, m := range result.Matches {
				assert.Equal(t, i+1, m.Rank)
				if i > 0 {
					assert.GreaterOrEqual(t, result.Matches[i-1].Score, m.Score)
				}
			}
		})
	}
}

func TestSearchZeroLimitSkipsEmbedding(t *testing.T) {
	engine, provider, _ := indexedEngine(t)
	before := provider.Calls()

	result, err := engine.Search(context.Background(), testutil.TestQuestion, SearchOptions{Limit: 0})
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.Equal(t, before, provider.Calls())
}

func TestSearchEmbedsQuestionAsSingleBatch(t *testing.T) {
	engine, provider, _ := indexedEngine(t)

	_, err := engine.Search(context.Background(), testutil.TestQuestion, SearchOptions{Limit: 3})
	require.NoError(t, err)

	batches := provider.Batches()
	assert.Equal(t, []string{testutil.TestQuestion}, batches[len(batches)-1])
}

func TestSearchEmptyIndex(t *testing.T) {
	engine := NewSearchEngine(testutil.NewMockProvider(testutil.TestDimension), storage.NewMemoryIndex(testutil.TestDimension))

	result, err := engine.Search(context.Background(), "anything", SearchOptions{Limit: 5})
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.NotNil(t, result.Matches)
}

func TestSearchTopMatchIsExactDescription(t *testing.T) {
	engine, _, _ := indexedEngine(t)

	question := "Table well_repair_status. Contains fields: id, status, repair_date."

	result, err := engine.Search(context.Background(), question, SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)

	top := result.Matches[0]
	assert.Equal(t, "table_well_repair_status", top.ID)
	assert.Equal(t, "table", top.Type)
	assert.Equal(t, "well_repair_status", top.Name)
	assert.InDelta(t, 1.0, top.Score, 1e-5)
}

func TestSearchFilters(t *testing.T) {
	engine, _, _ := indexedEngine(t)
	ctx := context.Background()

	result, err := engine.Search(ctx, testutil.TestQuestion, SearchOptions{Limit: 10, Types: []string{"Column"}})
	require.NoError(t, err)
	require.Len(t, result.Matches, 6)

	for _, m := range result.Matches {
		assert.Equal(t, "column", m.Type)
		assert.NotEmpty(t, m.TableName)
	}

	result, err = engine.Search(ctx, testutil.TestQuestion, SearchOptions{Limit: 10, MinScore: 1.1})
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestSearchBlankQuestion(t *testing.T) {
	engine, provider, _ := indexedEngine(t)

	for _, question := range []string{"", "   "} {
		result, err := engine.Search(context.Background(), question, SearchOptions{Limit: 5})
		require.NoError(t, err, "question=%q", question)
		assert.LessOrEqual(t, len(result.Matches), 5)
	}

	assert.Equal(t, [][]string{{""}, {"   "}}, provider.Batches()[1:], "blank questions are embedded as a batch of one")
}

func TestSearchErrors(t *testing.T) {
	index := storage.NewMemoryIndex(testutil.TestDimension)

	failing := NewSearchEngine(
		testutil.NewMockProvider(testutil.TestDimension, testutil.WithEmbedError(assert.AnError)),
		index,
	)
	_, err := failing.Search(context.Background(), "status", SearchOptions{Limit: 5})
	assert.Equal(t, errors.ErrTypeEmbedding, errors.GetType(err))

	slow := NewSearchEngine(
		testutil.NewMockProvider(testutil.TestDimension,
			testutil.WithEmbedError(errors.New(errors.ErrTypeTimeout, "embedding timed out"))),
		index,
	)
	_, err = slow.Search(context.Background(), "status", SearchOptions{Limit: 5})
	assert.Equal(t, errors.ErrTypeTimeout, errors.GetType(err))

	mismatched := NewSearchEngine(testutil.NewMockProvider(8), index)
	_, err = mismatched.Search(context.Background(), "status", SearchOptions{Limit: 5})
	assert.Equal(t, errors.ErrTypeVectorIndex, errors.GetType(err))
}
