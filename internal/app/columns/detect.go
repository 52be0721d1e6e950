// Package columns infers which export column holds which survey field.
//
// Detection runs in two phases. Header names are matched against ordered
// pattern rules, then the first data row is checked against value shapes and
// mappings that look wrong are re-assigned.
package columns

import (
	"strings"

	"github.com/tracerstudy/tracer-sync/internal/pkg/tabular"
	"github.com/tracerstudy/tracer-sync/internal/pkg/textnorm"
)

// Field is a semantic column.
type Field string

const (
	Program        Field = "prodi"
	Faculty        Field = "fakultas"
	NIM            Field = "nim"
	FullName       Field = "nama_lengkap"
	Name           Field = "nama"
	Email          Field = "email"
	Graduation     Field = "tahun_lulus"
	StatusF8       Field = "f8"
	Status         Field = "status"
	EmploymentFlag Field = "f504"
)

// Fields lists every field in rule order.
var Fields = []Field{Program, Faculty, NIM, FullName, Name, Email, Graduation, StatusF8, Status, EmploymentFlag}

var nameHeaders = map[string]bool{
	"nama":           true,
	"name":           true,
	"nama alumni":    true,
	"nama responden": true,
}

var programHeaders = map[string]bool{
	"prodi":         true,
	"program studi": true,
	"nama prodi":    true,
	"prodi alumni":  true,
}

type rule struct {
	field Field
	match func(key string) bool
}

var rules = []rule{
	{Program, func(k string) bool {
		return programHeaders[k] ||
			(strings.Contains(k, "program studi") && !strings.HasPrefix(k, "ts")) ||
			(strings.Contains(k, "af3") && strings.Contains(k, "prodi"))
	}},
	{Faculty, func(k string) bool {
		return k == "fakultas" || (strings.Contains(k, "fakultas") && len(k) <= 40)
	}},
	{NIM, func(k string) bool {
		return strings.Contains(k, "nomor mahasiswa") || k == "nim" ||
			strings.Contains(k, "bp/nim") || k == "no bp" ||
			(strings.Contains(k, "bp") && strings.Contains(k, "nim")) ||
			(strings.HasPrefix(k, "nim") && len(k) <= 10)
	}},
	{FullName, func(k string) bool {
		return strings.Contains(k, "nama lengkap") || strings.HasPrefix(k, "af4")
	}},
	{Name, func(k string) bool {
		return nameHeaders[k] || strings.Contains(k, "nama mahasiswa")
	}},
	{Email, func(k string) bool {
		return k == "email" || k == "e-mail" || strings.HasPrefix(k, "email") ||
			(strings.Contains(k, "email") && len(k) <= 60)
	}},
	{Graduation, func(k string) bool {
		return strings.Contains(k, "tahun") && strings.Contains(k, "lulus")
	}},
	{StatusF8, func(k string) bool {
		return k == "f8" || (strings.Contains(k, "jelaskan status") && strings.Contains(k, "saat ini"))
	}},
	{Status, func(k string) bool {
		return strings.Contains(k, "status")
	}},
	{EmploymentFlag, func(k string) bool {
		return k == "f504" || (strings.Contains(k, "mendapatkan pekerjaan") && strings.Contains(k, "berwirausaha"))
	}},
}

// Mapping assigns fields to column indexes of one table.
type Mapping struct {
	cols    map[Field]int
	headers []string
}

// Col returns the column index for f.
func (m Mapping) Col(f Field) (int, bool) {
	i, ok := m.cols[f]
	return i, ok
}

// Has reports whether f is mapped.
func (m Mapping) Has(f Field) bool {
	_, ok := m.cols[f]
	return ok
}

// Header returns the header name mapped to f, or "".
func (m Mapping) Header(f Field) string {
	if i, ok := m.cols[f]; ok && i < len(m.headers) {
		return m.headers[i]
	}
	return ""
}

// NameCol returns the column holding the person's name, preferring the full-name column.
func (m Mapping) NameCol() (int, bool) {
	if i, ok := m.cols[FullName]; ok {
		return i, true
	}
	return m.Col(Name)
}

// StatusCol returns the status question column, preferring f8.
func (m Mapping) StatusCol() (int, bool) {
	if i, ok := m.cols[StatusF8]; ok {
		return i, true
	}
	return m.Col(Status)
}

// Headers returns field → header for every mapped field.
func (m Mapping) Headers() map[string]string {
	out := make(map[string]string, len(m.cols))
	for f := range m.cols {
		out[string(f)] = m.Header(f)
	}
	return out
}

// Len returns the number of mapped fields.
func (m Mapping) Len() int { return len(m.cols) }

func (m Mapping) assigned(col int) bool {
	for _, c := range m.cols {
		if c == col {
			return true
		}
	}
	return false
}

// Detect infers the field mapping of t. It is deterministic and has no side effects.
func Detect(t *tabular.Table) Mapping {
	m := Mapping{cols: make(map[Field]int), headers: t.Headers}

	for col, h := range t.Headers {
		key := textnorm.Key(h)
		for _, r := range rules {
			if m.Has(r.field) {
				continue
			}
			if r.field == Status && m.Has(StatusF8) {
				continue
			}
			if r.match(key) {
				m.cols[r.field] = col
				break
			}
		}
	}

	if t.Len() > 0 {
		m.recheckNIM(t)
		m.recheckName(t)
		m.valueFallbacks(t)
	}
	return m
}

func (m Mapping) recheckNIM(t *tabular.Table) {
	if col, ok := m.cols[NIM]; ok {
		if textnorm.LooksLikeNIM(t.Cell(0, col)) {
			return
		}
		delete(m.cols, NIM)
	}
	for col := range t.Headers {
		if textnorm.LooksLikeNIM(t.Cell(0, col)) {
			m.cols[NIM] = col
			return
		}
	}
}

// recheckName replaces a name column whose first value is not name-like. A
// replacement is only adopted into the plain name field when that field is
// still free; the rejected full-name mapping is then dropped so the
// replacement takes effect.
func (m Mapping) recheckName(t *tabular.Table) {
	col, ok := m.NameCol()
	if !ok || textnorm.LooksLikeName(t.Cell(0, col)) {
		return
	}
	if nameCol, has := m.cols[Name]; has {
		if nameCol != col && textnorm.LooksLikeName(t.Cell(0, nameCol)) {
			delete(m.cols, FullName)
		}
		return
	}

	for c := range t.Headers {
		if c == col || m.assigned(c) {
			continue
		}
		if textnorm.LooksLikeName(t.Cell(0, c)) {
			delete(m.cols, FullName)
			m.cols[Name] = c
			return
		}
	}
}

func (m Mapping) valueFallbacks(t *tabular.Table) {
	if !m.Has(Email) {
		for c := range t.Headers {
			v := t.Cell(0, c)
			if m.assigned(c) || !strings.Contains(v, "@") {
				continue
			}
			if _, ok := textnorm.Email(v); ok {
				m.cols[Email] = c
				break
			}
		}
	}
	if !m.Has(Graduation) {
		for c, h := range t.Headers {
			if m.assigned(c) || !strings.Contains(textnorm.Key(h), "tahun") {
				continue
			}
			if _, ok := textnorm.Year(t.Cell(0, c)); ok {
				m.cols[Graduation] = c
				break
			}
		}
	}
	if !m.Has(Faculty) {
		for c := range t.Headers {
			if !m.assigned(c) && strings.Contains(strings.ToLower(t.Cell(0, c)), "fakultas") {
				m.cols[Faculty] = c
				break
			}
		}
	}
}
