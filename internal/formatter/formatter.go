package formatter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/cli/go-gh/v2/pkg/term"

	"github.com/alexSpace56/data-navigator/internal/answer"
	"github.com/alexSpace56/data-navigator/internal/indexer"
	"github.com/alexSpace56/data-navigator/internal/query"
	"github.com/alexSpace56/data-navigator/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatLong  OutputFormat = "long"
	FormatShort OutputFormat = "short"
	FormatTable OutputFormat = "table"
)

const (
	defaultWidth     = 120
	shortDescription = 80
)

// Formatter renders matches, answers and index summaries for the terminal
type Formatter struct {
	isTTY bool
	width int
	now   func() time.Time
}

// NewFormatter detects the terminal from the environment
func NewFormatter() *Formatter {
	t := term.FromEnv()

	width := defaultWidth
	if w, _, err := t.Size(); err == nil && w > 0 {
		width = w
	}

	return &Formatter{isTTY: t.IsTerminalOutput(), width: width, now: time.Now}
}

// NewPlainFormatter renders for a non-terminal writer of the given width
func NewPlainFormatter(width int) *Formatter {
	if width <= 0 {
		width = defaultWidth
	}

	return &Formatter{width: width, now: time.Now}
}

// FormatMatch formats a single search match
func (f *Formatter) FormatMatch(m query.Match, format OutputFormat) string {
	switch format {
	case FormatLong:
		return f.formatLong(m)
	default:
		return f.formatShort(m)
	}
}

// formatLong lists every field of a match on its own line
func (f *Formatter) formatLong(m query.Match) string {
	owner := m.TableName
	if owner == "" {
		owner = "-"
	}

	lines := []string{
		fmt.Sprintf("%d. %s", m.Rank, label(m)),
		"Type: " + m.Type,
		"Table: " + owner,
		fmt.Sprintf("Score: %.3f", m.Score),
		"Description: " + m.Description,
	}

	return strings.Join(lines, "\n")
}

func (f *Formatter) formatShort(m query.Match) string {
	return fmt.Sprintf("%d. %s  Score:%.2f  %s",
		m.Rank, label(m), m.Score, truncate(m.Description, shortDescription))
}

// WriteMatches renders matches in the requested format
func (f *Formatter) WriteMatches(w io.Writer, matches []query.Match, format OutputFormat) error {
	if format == FormatTable {
		return f.matchTable(w, matches)
	}

	sep := "\n"
	if format == FormatLong {
		sep = "\n\n"
	}

	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = f.FormatMatch(m, format)
	}

	_, err := fmt.Fprintln(w, strings.Join(parts, sep))

	return err
}

func (f *Formatter) matchTable(w io.Writer, matches []query.Match) error {
	tp := tableprinter.New(w, f.isTTY, f.width)
	tp.AddHeader([]string{"RANK", "TYPE", "NAME", "TABLE", "SCORE", "DESCRIPTION"})

	for _, m := range matches {
		tp.AddField(fmt.Sprintf("%d", m.Rank))
		tp.AddField(m.Type)
		tp.AddField(m.Name)
		tp.AddField(orDash(m.TableName))
		tp.AddField(fmt.Sprintf("%.3f", m.Score))
		tp.AddField(m.Description)
		tp.EndRow()
	}

	return tp.Render()
}

// FormatAnswer prints the answer text followed by numbered sources
func (f *Formatter) FormatAnswer(a answer.Answer) string {
	if len(a.Context) == 0 {
		return a.Text
	}

	lines := []string{a.Text, "", "Sources:"}
	for i, item := range a.Context {
		lines = append(lines, fmt.Sprintf("  %d. %s (%.2f)", i+1, answer.Label(item), item.Score))
	}

	return strings.Join(lines, "\n")
}

// FormatReport summarises an indexing run
func (f *Formatter) FormatReport(r indexer.Report) string {
	mode := "upserted"
	if r.Cleared {
		mode = "replaced"
	}

	return fmt.Sprintf("Indexed %d documents (%s): %d tables, %d columns, %d procedures, %d triggers in %s",
		r.Documents, mode, r.Tables, r.Columns, r.Procedures, r.Triggers, r.Duration.Round(time.Millisecond))
}

// WriteStats renders index statistics as a two-column table
func (f *Formatter) WriteStats(w io.Writer, s *storage.Stats) error {
	tp := tableprinter.New(w, f.isTTY, f.width)

	row := func(key, value string) {
		tp.AddField(key)
		tp.AddField(value)
		tp.EndRow()
	}

	row("Backend", s.Backend)
	row("Documents", fmt.Sprintf("%d", s.Documents))

	kinds := make([]string, 0, len(s.ByType))
	for kind := range s.ByType {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	for _, kind := range kinds {
		row("  "+kind, fmt.Sprintf("%d", s.ByType[kind]))
	}

	if s.LastRun != nil {
		row("Last indexed", f.humanizeAge(s.LastRun.FinishedAt))
	} else {
		row("Last indexed", "never")
	}

	return tp.Render()
}

// humanizeAge converts a time to a human-readable age string
func (f *Formatter) humanizeAge(t time.Time) string {
	if t.IsZero() {
		return "?"
	}

	duration := f.now().Sub(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(duration.Hours()))
	}

	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}

	return fmt.Sprintf("%d days ago", days)
}

func label(m query.Match) string {
	return answer.Label(answer.ContextItem{Type: m.Type, Name: m.Name, TableName: m.TableName})
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
