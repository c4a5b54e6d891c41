package formatter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexSpace56/data-navigator/internal/answer"
	"github.com/alexSpace56/data-navigator/internal/indexer"
	"github.com/alexSpace56/data-navigator/internal/query"
	"github.com/alexSpace56/data-navigator/internal/storage"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestFormatter() *Formatter {
	f := NewPlainFormatter(0)
	f.now = func() time.Time { return fixedNow }

	return f
}

func sampleMatches() []query.Match {
	return []query.Match{
		{
			ID:          "table_well_repair_status",
			Description: "Table well_repair_status. Contains fields: id, status, repair_date.",
			Type:        "table",
			Name:        "well_repair_status",
			Score:       0.9123,
			Rank:        1,
		},
		{
			ID:          "col_well_repair_status_status",
			Description: "Status.",
			Type:        "column",
			Name:        "status",
			TableName:   "well_repair_status",
			Score:       0.5,
			Rank:        2,
		},
	}
}

func TestFormatter_FormatMatch(t *testing.T) {
	f := newTestFormatter()
	match := sampleMatches()[1]

	tests := []struct {
		name     string
		format   OutputFormat
		expected string
	}{
		{
			name:     "short format",
			format:   FormatShort,
			expected: "2. column well_repair_status.status  Score:0.50  Status.",
		},
		{
			name:   "long format",
			format: FormatLong,
			expected: `2. column well_repair_status.status
Type: column
Table: well_repair_status
Score: 0.500
Description: Status.`,
		},
		{
			name:     "unknown format falls back to short",
			format:   OutputFormat("unknown"),
			expected: "2. column well_repair_status.status  Score:0.50  Status.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.FormatMatch(match, tt.format))
		})
	}
}

func TestFormatter_LongFormWithoutTable(t *testing.T) {
	out := newTestFormatter().FormatMatch(sampleMatches()[0], FormatLong)
	assert.Contains(t, out, "Table: -")
	assert.True(t, strings.HasPrefix(out, "1. table well_repair_status\n"))
}

func TestFormatter_ShortTruncatesRunes(t *testing.T) {
	match := query.Match{Type: "table", Name: "t", Rank: 1, Description: strings.Repeat("ж", 100)}

	out := newTestFormatter().FormatMatch(match, FormatShort)
	assert.True(t, strings.HasSuffix(out, strings.Repeat("ж", shortDescription-3)+"..."))
}

func TestFormatter_WriteMatchesTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestFormatter().WriteMatches(&buf, sampleMatches(), FormatTable))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1\ttable\twell_repair_status\t-\t0.912\tTable well_repair_status. Contains fields: id, status, repair_date.", lines[0])
	assert.Equal(t, "2\tcolumn\tstatus\twell_repair_status\t0.500\tStatus.", lines[1])
}

func TestFormatter_WriteMatchesLong(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestFormatter().WriteMatches(&buf, sampleMatches(), FormatLong))

	assert.Contains(t, buf.String(), "Description: Status.\n")
	assert.Contains(t, buf.String(), "repair_date.\n\n2. column")
}

func TestFormatter_FormatAnswer(t *testing.T) {
	f := newTestFormatter()

	empty := answer.Answer{Text: "Nothing found.", Context: []answer.ContextItem{}}
	assert.Equal(t, "Nothing found.", f.FormatAnswer(empty))

	full := answer.Answer{
		Text:    "Repair status is stored in well_repair_status.",
		Context: answer.ContextFromMatches(sampleMatches()),
	}
	assert.Equal(t, `Repair status is stored in well_repair_status.

Sources:
  1. table well_repair_status (0.91)
  2. column well_repair_status.status (0.50)`, f.FormatAnswer(full))
}

func TestFormatter_FormatReport(t *testing.T) {
	report := indexer.Report{
		Documents:  10,
		Tables:     2,
		Columns:    6,
		Procedures: 1,
		Triggers:   1,
		Cleared:    true,
		Duration:   1234567 * time.Microsecond,
	}

	assert.Equal(t,
		"Indexed 10 documents (replaced): 2 tables, 6 columns, 1 procedures, 1 triggers in 1.235s",
		newTestFormatter().FormatReport(report))

	report.Cleared = false
	assert.Contains(t, newTestFormatter().FormatReport(report), "(upserted)")
}

func TestFormatter_WriteStats(t *testing.T) {
	stats := &storage.Stats{
		Backend:   "memory",
		Documents: 3,
		ByType:    map[string]int{"table": 1, "column": 2},
		LastRun:   &storage.Run{FinishedAt: fixedNow.Add(-2 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, newTestFormatter().WriteStats(&buf, stats))

	out := buf.String()
	assert.Contains(t, out, "Backend\tmemory")
	assert.Contains(t, out, "Documents\t3")
	assert.Less(t, strings.Index(out, "column"), strings.Index(out, "table"))
	assert.Contains(t, out, "Last indexed\t2 hours ago")

	buf.Reset()
	stats.LastRun = nil
	require.NoError(t, newTestFormatter().WriteStats(&buf, stats))
	assert.Contains(t, buf.String(), "Last indexed\tnever")
}

func TestFormatter_humanizeAge(t *testing.T) {
	f := newTestFormatter()

	tests := []struct {
		name     string
		time     time.Time
		expected string
	}{
		{"zero", time.Time{}, "?"},
		{"seconds", fixedNow.Add(-10 * time.Second), "just now"},
		{"minutes", fixedNow.Add(-5 * time.Minute), "5 minutes ago"},
		{"hours", fixedNow.Add(-3 * time.Hour), "3 hours ago"},
		{"one day", fixedNow.Add(-25 * time.Hour), "1 day ago"},
		{"days", fixedNow.Add(-72 * time.Hour), "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.humanizeAge(tt.time))
		})
	}
}
