// Package tabular loads survey exports (CSV in several legacy encodings, or
// xlsx workbooks) into an in-memory table with cleaned header names.
package tabular

import (
	"strconv"
	"strings"
)

// Table is a decoded export. Every row has exactly len(Headers) cells.
type Table struct {
	Headers  []string
	Rows     [][]string
	Encoding string
	SkipRows int
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Cell returns the raw value at (row, col), or "" when out of range.
func (t *Table) Cell(row, col int) string {
	if t == nil || row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Index returns the position of a cleaned header name, or -1.
func (t *Table) Index(header string) int {
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// CleanHeader applies the header normalization used for every loaded table:
// trim, lowercase, spaces to underscores and '#' removed.
func CleanHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	return strings.ReplaceAll(h, "#", "")
}

// cleanHeaders normalizes a raw header row, naming blank columns and
// suffixing duplicates with ".1", ".2" and so on.
func cleanHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := CleanHeader(h)
		if name == "" {
			name = "unnamed_" + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// newTable squares rows to the header width and drops fully empty rows.
func newTable(rawHeaders []string, records [][]string) *Table {
	t := &Table{Headers: cleanHeaders(rawHeaders)}
	width := len(t.Headers)
	for _, rec := range records {
		if blankRow(rec) {
			continue
		}
		row := make([]string, width)
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t
}
