package query

import (
	"context"
	"strings"

	"github.com/alexSpace56/data-navigator/internal/embedding"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/logging"
	"github.com/alexSpace56/data-navigator/internal/storage"
)

// DefaultLimit is used when SearchOptions.Limit is negative
const DefaultLimit = 5

// SearchOptions represents search configuration options
type SearchOptions struct {
	// Limit caps the number of matches; negative means DefaultLimit
	Limit    int
	MinScore float64
	// Types keeps only matches of these object types when non-empty
	Types []string
}

// Match is one ranked schema description
type Match struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	TableName   string  `json:"table_name,omitempty"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
}

// Result is the ordered answer to one question
type Result struct {
	Question string  `json:"question"`
	Matches  []Match `json:"matches"`
}

// Empty reports whether nothing matched
func (r *Result) Empty() bool {
	return r == nil || len(r.Matches) == 0
}

// Engine defines the search engine interface
type Engine interface {
	Search(ctx context.Context, question string, opts SearchOptions) (*Result, error)
}

// SearchEngine embeds questions and looks them up in the vector index
type SearchEngine struct {
	provider embedding.Provider
	index    storage.Index
}

// NewSearchEngine creates a new search engine instance
func NewSearchEngine(provider embedding.Provider, index storage.Index) *SearchEngine {
	return &SearchEngine{provider: provider, index: index}
}

// Search returns up to opts.Limit descriptions most similar to question.
// A blank question is embedded and ranked like any other.
func (e *SearchEngine) Search(ctx context.Context, question string, opts SearchOptions) (*Result, error) {
	result := &Result{Question: question, Matches: []Match{}}

	limit := opts.Limit
	if limit < 0 {
		limit = DefaultLimit
	}

	if limit == 0 {
		return result, nil
	}

	err := logging.LoggerMiddleware("search", func() error {
		matches, err := e.search(ctx, question, limit, opts)
		if err != nil {
			return err
		}

		result.Matches = matches

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (e *SearchEngine) search(ctx context.Context, question string, limit int, opts SearchOptions) ([]Match, error) {
	vector, err := embedding.EmbedOne(ctx, e.provider, question)
	if err != nil {
		if errors.GetType(err) == errors.ErrTypeTimeout {
			return nil, err
		}

		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to embed question")
	}

	fetch := limit
	if len(opts.Types) > 0 {
		// type filtering runs after ranking, so consider the whole collection
		count, err := e.index.Count(ctx)
		if err != nil {
			return nil, err
		}

		fetch = count
	}

	hits, err := e.index.Query(ctx, vector, fetch)
	if err != nil {
		if errors.GetType(err) == errors.ErrTypeTimeout {
			return nil, err
		}

		return nil, errors.Wrap(err, errors.ErrTypeVectorIndex, "failed to query index")
	}

	types := make(map[string]bool, len(opts.Types))
	for _, t := range opts.Types {
		types[strings.ToLower(strings.TrimSpace(t))] = true
	}

	matches := make([]Match, 0, limit)

	for _, hit := range hits {
		if opts.MinScore > 0 && hit.Score < opts.MinScore {
			break
		}

		if len(types) > 0 && !types[hit.Document.Metadata.Type] {
			continue
		}

		matches = append(matches, Match{
			ID:          hit.Document.ID,
			Description: hit.Document.Text,
			Type:        hit.Document.Metadata.Type,
			Name:        hit.Document.Metadata.Name,
			TableName:   hit.Document.Metadata.TableName,
			Score:       hit.Score,
			Rank:        len(matches) + 1,
		})

		if len(matches) == limit {
			break
		}
	}

	logging.WithFields(map[string]interface{}{
		"matches": len(matches),
		"limit":   limit,
	}).Debug("Search completed")

	return matches, nil
}
