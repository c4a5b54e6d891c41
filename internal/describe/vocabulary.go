package describe

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

//go:embed vocabularies/*.yaml
var builtinVocabularies embed.FS

// Keyword maps one underscore-separated name part to a natural-language term
type Keyword struct {
	Keyword string `yaml:"keyword"`
	Term    string `yaml:"term"`
}

// Rule assigns a purpose when every substring in All occurs in a definition
type Rule struct {
	All     []string `yaml:"all"`
	Purpose string   `yaml:"purpose"`
}

// Matches reports whether every substring occurs in the already lower-cased text
func (r Rule) Matches(lowered string) bool {
	if len(r.All) == 0 {
		return false
	}

	for _, s := range r.All {
		if !strings.Contains(lowered, strings.ToLower(s)) {
			return false
		}
	}

	return true
}

// Vocabulary holds every string the description generator emits.
// Rules are evaluated in order and the first match wins.
type Vocabulary struct {
	TableLabel       string `yaml:"table_label"`
	FieldsLabel      string `yaml:"fields_label"`
	ProcedureLabel   string `yaml:"procedure_label"`
	TriggerLabel     string `yaml:"trigger_label"`
	PurposeLabel     string `yaml:"purpose_label"`
	PrimaryKeySuffix string `yaml:"primary_key_suffix"`
	RequiredSuffix   string `yaml:"required_suffix"`
	NoMatches        string `yaml:"no_matches"`

	Keywords          []Keyword `yaml:"keywords"`
	ProcedureRules    []Rule    `yaml:"procedure_rules"`
	ProcedureFallback string    `yaml:"procedure_fallback"`
	TriggerRules      []Rule    `yaml:"trigger_rules"`
	TriggerFallback   string    `yaml:"trigger_fallback"`

	terms map[string]string
}

// DefaultVocabulary returns the built-in English vocabulary
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		TableLabel:       "Table",
		FieldsLabel:      "Contains fields",
		ProcedureLabel:   "Procedure",
		TriggerLabel:     "Trigger",
		PurposeLabel:     "Purpose",
		PrimaryKeySuffix: "Primary key of the table.",
		RequiredSuffix:   "Required field.",
		NoMatches:        "Nothing matching your question was found in the database.",
		Keywords: []Keyword{
			{"id", "unique identifier"},
			{"name", "name"},
			{"date", "date"},
			{"type", "type"},
			{"status", "status"},
			{"reason", "reason"},
			{"description", "description"},
			{"planned", "planned"},
			{"actual", "actual"},
			{"well", "well"},
			{"field", "field"},
			{"repair", "repair"},
			{"crew", "crew"},
			{"event", "event"},
		},
		ProcedureRules: []Rule{
			{All: []string{"repair", "duration"}, Purpose: "Calculates the duration of well repair work"},
			{All: []string{"status", "well"}, Purpose: "Returns the current well status and repair information"},
			{All: []string{"update", "timestamp"}, Purpose: "Updates timestamps when data changes"},
		},
		ProcedureFallback: "Processes well operations business logic",
		TriggerRules: []Rule{
			{All: []string{"timestamp"}, Purpose: "Automatically updates the last modification time"},
			{
				All:     []string{"status", "repair"},
				Purpose: "Automatically updates the well status when the repair status changes",
			},
		},
		TriggerFallback: "Automatically processes data changes",
	}
	v.index()

	return v
}

// LoadVocabulary resolves name to a vocabulary. An empty name or "en" is the
// default, other bare names select a built-in file, anything else is a path.
func LoadVocabulary(name string) (*Vocabulary, error) {
	if name == "" || name == "en" {
		return DefaultVocabulary(), nil
	}

	var (
		data []byte
		err  error
	)

	if !strings.ContainsAny(name, `/\.`) {
		data, err = builtinVocabularies.ReadFile("vocabularies/" + name + ".yaml")
		if err != nil {
			return nil, errors.Newf(errors.ErrTypeConfig, "unknown built-in vocabulary %q", name).
				WithSuggestion("Use en, ru, or a path to a YAML vocabulary file")
		}
	} else {
		data, err = os.ReadFile(name)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeConfig, "failed to read vocabulary file %s", name)
		}
	}

	return ParseVocabulary(data)
}

// ParseVocabulary decodes a YAML vocabulary. Labels left empty keep their
// English defaults; keyword and rule lists replace the defaults when present.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var parsed Vocabulary
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to parse vocabulary")
	}

	v := DefaultVocabulary()

	setString := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}

	setString(&v.TableLabel, parsed.TableLabel)
	setString(&v.FieldsLabel, parsed.FieldsLabel)
	setString(&v.ProcedureLabel, parsed.ProcedureLabel)
	setString(&v.TriggerLabel, parsed.TriggerLabel)
	setString(&v.PurposeLabel, parsed.PurposeLabel)
	setString(&v.PrimaryKeySuffix, parsed.PrimaryKeySuffix)
	setString(&v.RequiredSuffix, parsed.RequiredSuffix)
	setString(&v.NoMatches, parsed.NoMatches)
	setString(&v.ProcedureFallback, parsed.ProcedureFallback)
	setString(&v.TriggerFallback, parsed.TriggerFallback)

	if parsed.Keywords != nil {
		v.Keywords = parsed.Keywords
	}

	if parsed.ProcedureRules != nil {
		v.ProcedureRules = parsed.ProcedureRules
	}

	if parsed.TriggerRules != nil {
		v.TriggerRules = parsed.TriggerRules
	}

	if err := v.validate(); err != nil {
		return nil, err
	}

	v.index()

	return v, nil
}

func (v *Vocabulary) validate() error {
	for i, k := range v.Keywords {
		if k.Keyword == "" {
			return errors.Newf(errors.ErrTypeValidation, "keyword %d has no keyword", i)
		}
	}

	check := func(kind string, rules []Rule) error {
		for i, r := range rules {
			if len(r.All) == 0 || r.Purpose == "" {
				return errors.Newf(
					errors.ErrTypeValidation,
					"%s rule %d needs at least one substring and a purpose",
					kind,
					i,
				)
			}
		}

		return nil
	}

	if err := check("procedure", v.ProcedureRules); err != nil {
		return err
	}

	return check("trigger", v.TriggerRules)
}

func (v *Vocabulary) index() {
	v.terms = make(map[string]string, len(v.Keywords))
	for _, k := range v.Keywords {
		key := strings.ToLower(k.Keyword)
		if _, seen := v.terms[key]; !seen {
			v.terms[key] = k.Term
		}
	}
}

// Term translates a single name part, passing unknown parts through unchanged
func (v *Vocabulary) Term(part string) string {
	if term, ok := v.terms[strings.ToLower(part)]; ok {
		return term
	}

	return part
}

// String is used by the config command
func (v *Vocabulary) String() string {
	return fmt.Sprintf(
		"%d keywords, %d procedure rules, %d trigger rules",
		len(v.Keywords),
		len(v.ProcedureRules),
		len(v.TriggerRules),
	)
}
