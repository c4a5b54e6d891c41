// Package describe turns schema objects into short natural-language texts
// suitable for embedding. Every function here is pure.
package describe

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alexSpace56/data-navigator/internal/schema"
)

// Describer renders descriptions using a fixed vocabulary
type Describer struct {
	vocab *Vocabulary
}

// New creates a describer; a nil vocabulary means the English default
func New(vocab *Vocabulary) *Describer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}

	return &Describer{vocab: vocab}
}

// Vocabulary returns the vocabulary in use
func (d *Describer) Vocabulary() *Vocabulary {
	return d.vocab
}

// Describe renders any object; unknown kinds yield an empty string
func (d *Describer) Describe(obj schema.Object) string {
	switch obj.Kind {
	case schema.KindTable:
		return d.table(obj.Name, obj.Columns)
	case schema.KindColumn:
		return d.column(obj.Name, obj.Nullable, obj.PrimaryKey)
	case schema.KindProcedure:
		return d.routine(d.vocab.ProcedureLabel, obj.Name, d.ProcedurePurpose(obj.Definition))
	case schema.KindTrigger:
		return d.routine(d.vocab.TriggerLabel, obj.Name, d.TriggerPurpose(obj.Definition))
	default:
		return ""
	}
}

// Table describes a table by listing its columns in order
func (d *Describer) Table(t schema.Table) string {
	return d.table(t.Name, t.Columns)
}

// Column describes a column from its name and constraints
func (d *Describer) Column(c schema.Column) string {
	return d.column(c.Name, c.Nullable, c.PrimaryKey)
}

// Procedure describes a stored procedure with its inferred purpose
func (d *Describer) Procedure(r schema.Routine) string {
	return d.Describe(r.Object(schema.KindProcedure))
}

// Trigger describes a trigger with its inferred purpose
func (d *Describer) Trigger(r schema.Routine) string {
	return d.Describe(r.Object(schema.KindTrigger))
}

func (d *Describer) table(name string, columns []schema.Column) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}

	var b strings.Builder
	b.WriteString(d.vocab.TableLabel)
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(". ")
	b.WriteString(d.vocab.FieldsLabel)
	b.WriteString(": ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteByte('.')

	return b.String()
}

func (d *Describer) column(name string, nullable, primaryKey bool) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		parts[i] = d.vocab.Term(p)
	}

	text := strings.Join(parts, " ") + "."

	switch {
	case primaryKey:
		text += " " + d.vocab.PrimaryKeySuffix
	case !nullable:
		text += " " + d.vocab.RequiredSuffix
	}

	return capitalize(text)
}

func (d *Describer) routine(label, name, purpose string) string {
	return label + " " + name + ". " + d.vocab.PurposeLabel + ": " + purpose
}

// ProcedurePurpose returns the purpose of the first matching procedure rule
func (d *Describer) ProcedurePurpose(definition string) string {
	return firstMatch(d.vocab.ProcedureRules, d.vocab.ProcedureFallback, definition)
}

// TriggerPurpose returns the purpose of the first matching trigger rule
func (d *Describer) TriggerPurpose(definition string) string {
	return firstMatch(d.vocab.TriggerRules, d.vocab.TriggerFallback, definition)
}

func firstMatch(rules []Rule, fallback, definition string) string {
	lowered := strings.ToLower(definition)
	for _, r := range rules {
		if r.Matches(lowered) {
			return r.Purpose
		}
	}

	return fallback
}

// capitalize upper-cases the first letter and leaves the rest untouched
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}
