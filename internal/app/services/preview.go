package services

import (
	"strings"
	"unicode/utf8"

	"github.com/tracerstudy/tracer-sync/internal/app/columns"
	"github.com/tracerstudy/tracer-sync/internal/pkg/tabular"
)

// ValidationStats counts rows with a non-empty value per detected field.
type ValidationStats struct {
	RowsWithNIM        int `json:"rows_with_nim"`
	RowsWithName       int `json:"rows_with_nama"`
	RowsWithProgram    int `json:"rows_with_prodi"`
	RowsWithFaculty    int `json:"rows_with_fakultas"`
	RowsWithEmail      int `json:"rows_with_email"`
	RowsWithGraduation int `json:"rows_with_tahun_lulus"`
}

// PreviewResult describes an uploaded table before anything is written.
type PreviewResult struct {
	Headers         []string          `json:"headers"`
	Rows            [][]*string       `json:"rows"`
	TotalRows       int               `json:"total_rows"`
	TotalColumns    int               `json:"total_columns"`
	PreviewRows     int               `json:"preview_rows"`
	DetectedColumns map[string]string `json:"detected_columns"`
	ValidationStats ValidationStats   `json:"validation_stats"`
	Encoding        string            `json:"encoding"`
	SkipRows        int               `json:"skip_rows"`
}

// Preview summarizes t: the first maxRows rows with cells cut to cellLimit
// runes, the detected mapping and per-field fill counts.
func Preview(t *tabular.Table, m columns.Mapping, maxRows, cellLimit int) *PreviewResult {
	n := min(maxRows, t.Len())
	rows := make([][]*string, n)
	for i := 0; i < n; i++ {
		row := make([]*string, len(t.Headers))
		for j := range t.Headers {
			v := t.Cell(i, j)
			if strings.TrimSpace(v) == "" {
				continue
			}
			v = truncate(v, cellLimit)
			row[j] = &v
		}
		rows[i] = row
	}

	count := func(col int, ok bool) int {
		if !ok {
			return 0
		}
		total := 0
		for i := 0; i < t.Len(); i++ {
			if strings.TrimSpace(t.Cell(i, col)) != "" {
				total++
			}
		}
		return total
	}

	return &PreviewResult{
		Headers:         t.Headers,
		Rows:            rows,
		TotalRows:       t.Len(),
		TotalColumns:    len(t.Headers),
		PreviewRows:     n,
		DetectedColumns: m.Headers(),
		ValidationStats: ValidationStats{
			RowsWithNIM:        count(m.Col(columns.NIM)),
			RowsWithName:       count(m.NameCol()),
			RowsWithProgram:    count(m.Col(columns.Program)),
			RowsWithFaculty:    count(m.Col(columns.Faculty)),
			RowsWithEmail:      count(m.Col(columns.Email)),
			RowsWithGraduation: count(m.Col(columns.Graduation)),
		},
		Encoding: t.Encoding,
		SkipRows: t.SkipRows,
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
