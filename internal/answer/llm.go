package answer

import (
	"context"
	"strings"

	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/llm"
	"github.com/alexSpace56/data-navigator/internal/logging"
	"github.com/alexSpace56/data-navigator/internal/query"
)

// SystemPrompt instructs the model to answer only from the supplied schema context
const SystemPrompt = `You are an assistant that explains a relational database schema.
Answer the user's question using only the schema objects listed in the context.
Name the relevant tables, columns, procedures and triggers explicitly.
If the context does not answer the question, say so briefly.`

// Completer is the part of llm.Service the composer needs
type Completer interface {
	Complete(ctx context.Context, prompt llm.Prompt) (string, error)
}

// LLMComposer asks a language model and falls back to the template on failure
type LLMComposer struct {
	completer Completer
	fallback  *TemplateComposer
}

// NewLLMComposer wraps completer; fallback also supplies the no-matches reply
func NewLLMComposer(completer Completer, fallback *TemplateComposer) *LLMComposer {
	return &LLMComposer{completer: completer, fallback: fallback}
}

func (c *LLMComposer) Compose(ctx context.Context, question string, matches []query.Match) (Answer, error) {
	if len(matches) == 0 {
		return c.fallback.empty(), nil
	}

	items := ContextFromMatches(matches)

	text, err := c.completer.Complete(ctx, Prompt(question, items))
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New(errors.ErrTypeLLM, "empty completion")
	}

	if err != nil {
		logging.WithFields(map[string]interface{}{
			"type": errors.GetType(err),
		}).WarnWithErr("LLM answer failed, using template", err)

		return c.fallback.Compose(ctx, question, matches)
	}

	return Answer{Text: text, Context: items, Strategy: StrategyLLM}, nil
}

// Prompt formats the question and context for the model
func Prompt(question string, items []ContextItem) llm.Prompt {
	var b strings.Builder

	b.WriteString("Context:\n")

	for _, item := range items {
		b.WriteString("- [")
		b.WriteString(item.Type)
		b.WriteString("] ")
		b.WriteString(item.Name)

		if item.TableName != "" {
			b.WriteString(" (table ")
			b.WriteString(item.TableName)
			b.WriteString(")")
		}

		b.WriteString(": ")
		b.WriteString(item.Description)
		b.WriteString("\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)

	return llm.Prompt{System: SystemPrompt, User: b.String()}
}
