package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexSpace56/data-navigator/internal/query"
)

// DefaultHeading introduces the match list; %s is the question
const DefaultHeading = "Schema objects related to %q:"

// TemplateComposer lists matches under a fixed heading without calling a model
type TemplateComposer struct {
	NoMatches string
	Heading   string
}

// NewTemplateComposer uses noMatches for empty results
func NewTemplateComposer(noMatches string) *TemplateComposer {
	return &TemplateComposer{NoMatches: noMatches, Heading: DefaultHeading}
}

func (c *TemplateComposer) Compose(_ context.Context, question string, matches []query.Match) (Answer, error) {
	if len(matches) == 0 {
		return c.empty(), nil
	}

	items := ContextFromMatches(matches)

	return Answer{
		Text:     c.render(question, items),
		Context:  items,
		Strategy: StrategyTemplate,
	}, nil
}

func (c *TemplateComposer) empty() Answer {
	return Answer{Text: c.NoMatches, Context: []ContextItem{}, Strategy: StrategyNoMatches}
}

func (c *TemplateComposer) render(question string, items []ContextItem) string {
	heading := c.Heading
	if heading == "" {
		heading = DefaultHeading
	}

	var b strings.Builder
	fmt.Fprintf(&b, heading, question)

	for _, item := range items {
		b.WriteString("\n- ")
		b.WriteString(Label(item))
		b.WriteString(": ")
		b.WriteString(item.Description)
	}

	return b.String()
}

// Label names an item by type and owner, e.g. "column well_repair_status.status"
func Label(item ContextItem) string {
	switch {
	case item.Type == "column" && item.TableName != "":
		return item.Type + " " + item.TableName + "." + item.Name
	case item.Type == "trigger" && item.TableName != "":
		return item.Type + " " + item.Name + " on " + item.TableName
	default:
		return item.Type + " " + item.Name
	}
}
