// Package answer turns ranked search matches into a human-readable answer.
package answer

import (
	"context"

	"github.com/alexSpace56/data-navigator/internal/query"
)

// Strategy names how an answer was produced
type Strategy string

const (
	StrategyTemplate Strategy = "template"
	StrategyLLM      Strategy = "llm"
	// StrategyNoMatches marks the fixed reply for an empty result
	StrategyNoMatches Strategy = "no_matches"
)

// ContextItem is one match as shown to users and language models
type ContextItem struct {
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	TableName   string  `json:"table_name,omitempty"`
	ColumnName  string  `json:"column_name,omitempty"`
	Score       float64 `json:"score"`
}

// Answer is the composed reply plus the context it was built from
type Answer struct {
	Text     string        `json:"answer"`
	Context  []ContextItem `json:"context"`
	Strategy Strategy      `json:"strategy"`
}

// Composer builds an answer for question from matches
type Composer interface {
	Compose(ctx context.Context, question string, matches []query.Match) (Answer, error)
}

// ContextFromMatches converts matches in rank order
func ContextFromMatches(matches []query.Match) []ContextItem {
	items := make([]ContextItem, len(matches))

	for i, m := range matches {
		item := ContextItem{
			Description: m.Description,
			Type:        m.Type,
			Name:        m.Name,
			TableName:   m.TableName,
			Score:       m.Score,
		}

		if m.Type == "column" {
			item.ColumnName = m.Name
		}

		items[i] = item
	}

	return items
}
