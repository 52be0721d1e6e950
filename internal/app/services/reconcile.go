package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tracerstudy/tracer-sync/internal/app/columns"
	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/dberrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
	"github.com/tracerstudy/tracer-sync/internal/pkg/tabular"
	"github.com/tracerstudy/tracer-sync/internal/pkg/textnorm"
)

// Outcome is the terminal state of one input row.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeInserted
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	}
	return "skipped"
}

// Result tallies one reconciliation pass.
type Result struct {
	Mode             models.Mode
	Inserted         int
	Updated          int
	Skipped          int
	Eliminated       int
	Total            int
	RespondentsAdded int
	Marked           int
	Aggregates       AggregateSummary
}

func (r *Result) add(o Outcome) {
	switch o {
	case OutcomeInserted:
		r.Inserted++
	case OutcomeUpdated:
		r.Updated++
	default:
		r.Skipped++
	}
}

// rowInput is one row after normalization. Empty strings and zero years mean absent.
type rowInput struct {
	index   int
	nim     string
	name    string
	email   string
	year    int
	faculty string
	program string
	status  string
	flag    string
}

// Engine reconciles inferred tables against the store.
type Engine struct {
	resolver   *Resolver
	aggregates *AggregateUpdater
}

// NewEngine creates a new Engine
func NewEngine(resolver *Resolver, aggregates *AggregateUpdater) *Engine {
	return &Engine{resolver: resolver, aggregates: aggregates}
}

// RequiredFields returns the columns a profile cannot run without.
func RequiredFields(p Profile) []columns.Field {
	var fields []columns.Field
	if p.RequireID {
		fields = append(fields, columns.NIM)
	}
	if p.RequireProgram {
		fields = append(fields, columns.Program)
	}
	return fields
}

// CheckColumns fails with apperrors.ErrMissingColumn when the mapping lacks a
// required field. Name columns are required by every profile.
func CheckColumns(m columns.Mapping, p Profile) error {
	for _, f := range RequiredFields(p) {
		if !m.Has(f) {
			return apperrors.NewMissingColumnError(string(f))
		}
	}
	if _, ok := m.NameCol(); !ok {
		return apperrors.NewMissingColumnError(string(columns.Name))
	}
	return nil
}

// Run executes one pass over t inside the store's transaction. Row failures
// are isolated by savepoints; a storage connectivity failure aborts the pass.
func (e *Engine) Run(ctx context.Context, s Store, t *tabular.Table, m columns.Mapping, p Profile) (*Result, error) {
	if err := CheckColumns(m, p); err != nil {
		return nil, err
	}

	added, err := s.EnsureCounterColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure counter columns: %w", err)
	}
	if added {
		if _, err := e.aggregates.RecomputeAll(ctx, s); err != nil {
			return nil, fmt.Errorf("failed to initialize counters: %w", err)
		}
	}

	res := &Result{Mode: p.Mode}
	rows := e.prepare(t, m, p, res)
	res.Total = len(rows)

	touched := NewTouched()
	for _, in := range rows {
		var outcome Outcome
		var respondentAdded, marked bool
		err := s.Savepoint(ctx, func() error {
			var err error
			outcome, respondentAdded, marked, err = e.reconcileRow(ctx, s, in, p, touched)
			return err
		})
		if err != nil {
			if ctx.Err() != nil || isFatal(err) {
				return nil, fmt.Errorf("pass aborted at row %d: %w", in.index+1, err)
			}
			logger.Warn().Err(err).Int("row", in.index+1).Msg("Row failed, skipping")
			res.Skipped++
			continue
		}
		res.add(outcome)
		if respondentAdded {
			res.RespondentsAdded++
		}
		if marked {
			res.Marked++
		}
	}

	summary, err := e.aggregates.Refresh(ctx, s, touched, p.TrackRespondents)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh aggregates: %w", err)
	}
	res.Aggregates = summary

	logger.Info().
		Str("mode", string(p.Mode)).
		Int("inserted", res.Inserted).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Int("eliminated", res.Eliminated).
		Int("total", res.Total).
		Msg("Reconciliation pass finished")
	return res, nil
}

// prepare normalizes every row and applies the ID pre-pass of profiles that
// require one.
func (e *Engine) prepare(t *tabular.Table, m columns.Mapping, p Profile, res *Result) []rowInput {
	seen := make(map[string]bool)
	rows := make([]rowInput, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		in := extractRow(t, m, i)
		if p.RequireID && in.nim == "" {
			res.Eliminated++
			continue
		}
		if p.DedupeByID && in.nim != "" {
			if seen[in.nim] {
				res.Eliminated++
				continue
			}
			seen[in.nim] = true
		}
		rows = append(rows, in)
	}
	if res.Eliminated > 0 {
		logger.Info().Int("eliminated", res.Eliminated).Int("remaining", len(rows)).Msg("Rows eliminated before reconciliation")
	}
	return rows
}

func extractRow(t *tabular.Table, m columns.Mapping, i int) rowInput {
	cell := func(col int, ok bool) string {
		if !ok {
			return ""
		}
		return t.Cell(i, col)
	}

	in := rowInput{index: i}
	if id, ok := textnorm.ID(cell(m.Col(columns.NIM))); ok {
		in.nim = id
	}
	if name, ok := textnorm.Text(cell(m.NameCol())); ok {
		in.name = strings.Join(strings.Fields(name), " ")
	}
	if email, ok := textnorm.Email(cell(m.Col(columns.Email))); ok {
		in.email = email
	}
	if year, ok := textnorm.Year(cell(m.Col(columns.Graduation))); ok {
		in.year = year
	}
	in.faculty, _ = textnorm.Text(cell(m.Col(columns.Faculty)))
	in.program, _ = textnorm.Text(cell(m.Col(columns.Program)))
	in.status, _ = textnorm.Text(cell(m.StatusCol()))
	in.flag, _ = textnorm.Text(cell(m.Col(columns.EmploymentFlag)))

	if in.faculty != "" && strings.EqualFold(in.faculty, in.name) {
		in.faculty = ""
	}
	return in
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (e *Engine) reconcileRow(ctx context.Context, s Store, in rowInput, p Profile, touched *Touched) (Outcome, bool, bool, error) {
	if in.name == "" {
		logger.Debug().Int("row", in.index+1).Msg("Row has no name, skipping")
		return OutcomeSkipped, false, false, nil
	}
	if p.RequireID && in.nim == "" {
		return OutcomeSkipped, false, false, nil
	}
	if p.RequireProgram && in.program == "" {
		logger.Debug().Int("row", in.index+1).Msg("Row has no program, skipping")
		return OutcomeSkipped, false, false, nil
	}

	sub := p.Substitutes
	facultyName, programName := in.faculty, in.program
	if facultyName == "" {
		facultyName = sub.Faculty
	}
	if programName == "" {
		programName = sub.Program
	}

	facultyID, err := e.resolver.ResolveFaculty(ctx, s, facultyName)
	if err != nil {
		return OutcomeSkipped, false, false, err
	}
	programID, err := e.resolver.ResolveProgram(ctx, s, programName, facultyID)
	if err != nil {
		return OutcomeSkipped, false, false, err
	}

	alumni, err := e.findAlumni(ctx, s, in, p)
	if err != nil {
		return OutcomeSkipped, false, false, err
	}

	var outcome Outcome
	if alumni != nil {
		if err := e.updateAlumni(ctx, s, alumni, in, programID, touched); err != nil {
			return OutcomeSkipped, false, false, err
		}
		outcome = OutcomeUpdated
	} else {
		alumni, err = e.insertAlumni(ctx, s, in, sub, programID, touched)
		if err != nil {
			return OutcomeSkipped, false, false, err
		}
		outcome = OutcomeInserted
	}

	var respondentAdded bool
	if p.TrackRespondents {
		respondentAdded, err = e.upsertRespondent(ctx, s, in, sub, alumni.ProgramID, touched)
		if err != nil {
			return OutcomeSkipped, false, false, err
		}
	}

	marked, err := e.mark(ctx, s, alumni.ID, in, p)
	if err != nil {
		return OutcomeSkipped, false, false, err
	}
	return outcome, respondentAdded, marked, nil
}

func (e *Engine) findAlumni(ctx context.Context, s AlumniStore, in rowInput, p Profile) (*models.Alumni, error) {
	if in.nim != "" {
		a, err := s.FindAlumniByNIM(ctx, in.nim)
		if err == nil {
			return a, nil
		}
		if !isMiss(err) {
			return nil, err
		}
	}
	if !p.MatchByName {
		return nil, nil
	}
	a, err := s.FindAlumniByName(ctx, in.name)
	if err == nil {
		return a, nil
	}
	if !isMiss(err) {
		return nil, err
	}
	return nil, nil
}

// updateAlumni overwrites the name and every field the row itself provides.
// Substitutes never overwrite stored values.
func (e *Engine) updateAlumni(ctx context.Context, s Store, a *models.Alumni, in rowInput, programID *int64, touched *Touched) error {
	a.Name = in.name
	if a.NIM == nil && in.nim != "" {
		a.NIM = strPtr(in.nim)
	}
	if in.email != "" {
		a.Email = strPtr(in.email)
	}
	if in.year != 0 {
		a.GraduationYear = intPtr(in.year)
	}

	oldProgram := a.ProgramID
	moved := in.program != "" && programID != nil && !sameID(oldProgram, programID)
	if moved {
		a.ProgramID = programID
	}
	if err := s.UpdateAlumni(ctx, a); err != nil {
		return fmt.Errorf("failed to update alumni %d: %w", a.ID, err)
	}

	touched.AddProgram(a.ProgramID)
	if !moved {
		return nil
	}
	touched.AddProgram(oldProgram)
	for _, id := range []*int64{oldProgram, programID} {
		if id == nil {
			continue
		}
		prog, err := s.RecountProgram(ctx, *id)
		if err != nil {
			return err
		}
		if err := s.RecountFaculty(ctx, prog.FacultyID); err != nil {
			return err
		}
		touched.AddFaculty(prog.FacultyID)
	}
	return nil
}

func (e *Engine) insertAlumni(ctx context.Context, s Store, in rowInput, sub Substitutes, programID *int64, touched *Touched) (*models.Alumni, error) {
	a := &models.Alumni{
		NIM:            strPtr(in.nim),
		Name:           in.name,
		Email:          strPtr(in.email),
		GraduationYear: intPtr(in.year),
		ProgramID:      programID,
	}
	if a.Email == nil {
		if email, ok := sub.Email(in.nim); ok {
			a.Email = &email
		}
	}
	if a.GraduationYear == nil {
		a.GraduationYear = intPtr(sub.Year)
	}

	id, err := s.CreateAlumni(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to create alumni: %w", err)
	}
	a.ID = id

	if programID == nil {
		return a, nil
	}
	prog, err := s.GetProgram(ctx, *programID)
	if err != nil {
		return nil, err
	}
	if err := s.IncrementProgramInput(ctx, prog.ID, 1); err != nil {
		return nil, err
	}
	if err := s.IncrementFacultyInput(ctx, prog.FacultyID, 1); err != nil {
		return nil, err
	}
	touched.AddProgram(programID)
	touched.AddFaculty(prog.FacultyID)
	return a, nil
}

// upsertRespondent keys respondents by NIM, or by name among respondents
// without one. It reports whether a row was created.
func (e *Engine) upsertRespondent(ctx context.Context, s RespondentStore, in rowInput, sub Substitutes, programID *int64, touched *Touched) (bool, error) {
	var (
		r   *models.Respondent
		err error
	)
	if in.nim != "" {
		r, err = s.FindRespondentByNIM(ctx, in.nim)
	} else {
		r, err = s.FindRespondentByName(ctx, in.name)
	}
	if err != nil && !isMiss(err) {
		return false, err
	}

	touched.AddProgram(programID)
	if r != nil && err == nil {
		touched.AddProgram(r.ProgramID)
		if programID != nil {
			r.ProgramID = programID
		}
		if in.email != "" {
			r.Email = strPtr(in.email)
		}
		if in.year != 0 {
			r.GraduationYear = intPtr(in.year)
		}
		if err := s.UpdateRespondent(ctx, r); err != nil {
			return false, fmt.Errorf("failed to update respondent %d: %w", r.ID, err)
		}
		return false, nil
	}

	r = &models.Respondent{
		NIM:            strPtr(in.nim),
		Name:           in.name,
		Email:          strPtr(in.email),
		GraduationYear: intPtr(in.year),
		ProgramID:      programID,
		InputCount:     1,
	}
	if r.GraduationYear == nil {
		r.GraduationYear = intPtr(sub.Year)
	}
	if _, err := s.CreateRespondent(ctx, r); err != nil {
		return false, fmt.Errorf("failed to create respondent: %w", err)
	}
	return true, nil
}

func (e *Engine) mark(ctx context.Context, s MarkerStore, alumniID int64, in rowInput, p Profile) (bool, error) {
	if !IsRespondent(in.status, in.flag, in.nim != "", in.name != "") {
		return false, nil
	}
	if in.status == "" && p.MarkOnlyWithStatus {
		return false, nil
	}
	marker := MapStatus(in.status, p.DefaultMarker)
	optionID, err := s.GetOrCreateStatusOption(ctx, marker)
	if err != nil {
		return false, err
	}
	created, err := s.MarkAlumni(ctx, alumniID, optionID)
	if err != nil {
		return false, err
	}
	return created, nil
}

// isFatal reports whether a row error must abort the pass instead of
// skipping the row.
func isFatal(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || dberrors.IsConnectionError(err))
}
