package services

import (
	"context"
	"fmt"

	"github.com/tracerstudy/tracer-sync/internal/app/columns"
	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
	"github.com/tracerstudy/tracer-sync/internal/pkg/tabular"
	"github.com/tracerstudy/tracer-sync/internal/pkg/textnorm"
)

// RecountResult is the outcome of an alumni-total pass.
type RecountResult struct {
	Updated       int
	TotalAlumni   int64
	ProgramCounts map[string]int
	Unresolved    int
}

// Recounter refreshes program totals from a program listing. Counters are
// always restored from stored alumni, the file only selects the programs.
type Recounter struct {
	resolver   *Resolver
	aggregates *AggregateUpdater
}

// NewRecounter creates a new Recounter
func NewRecounter(resolver *Resolver, aggregates *AggregateUpdater) *Recounter {
	return &Recounter{resolver: resolver, aggregates: aggregates}
}

// Run tallies rows per resolved program and recounts those programs.
func (r *Recounter) Run(ctx context.Context, s Store, t *tabular.Table, m columns.Mapping) (*RecountResult, error) {
	programCol, ok := m.Col(columns.Program)
	if !ok {
		return nil, apperrors.NewMissingColumnError(string(columns.Program))
	}
	facultyCol, hasFaculty := m.Col(columns.Faculty)

	if _, err := s.EnsureCounterColumns(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure counter columns: %w", err)
	}

	res := &RecountResult{ProgramCounts: map[string]int{}}
	touched := NewTouched()
	names := map[int64]string{}

	for i := 0; i < t.Len(); i++ {
		programName, ok := textnorm.Text(t.Cell(i, programCol))
		if !ok {
			continue
		}
		var facultyName string
		if hasFaculty {
			facultyName, _ = textnorm.Text(t.Cell(i, facultyCol))
		}

		id, err := r.matchProgram(ctx, s, facultyName, programName)
		if err != nil {
			return nil, err
		}
		if id == nil {
			logger.Warn().Str("program", programName).Str("faculty", facultyName).Int("row", i+1).Msg("Program not found")
			res.Unresolved++
			continue
		}

		name, ok := names[*id]
		if !ok {
			p, err := s.GetProgram(ctx, *id)
			if err != nil {
				return nil, err
			}
			name = p.Name
			names[*id] = name
		}
		res.ProgramCounts[name]++
		touched.AddProgram(id)
	}

	summary, err := r.aggregates.Refresh(ctx, s, touched, false)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh aggregates: %w", err)
	}
	res.Updated = summary.Programs
	res.TotalAlumni = summary.TotalAlumni
	return res, nil
}

// matchProgram looks the program up inside the named faculty when that
// faculty matches by name, else across all programs. Misses return nil.
func (r *Recounter) matchProgram(ctx context.Context, s Store, facultyName, programName string) (*int64, error) {
	if n, ok := textnorm.Name(programName); ok {
		programName = n
	}
	if n, ok := textnorm.Name(facultyName); ok {
		for _, match := range []models.NameMatch{models.MatchExact, models.MatchEither} {
			f, err := s.FindFaculty(ctx, n, match)
			if err != nil {
				if isMiss(err) {
					continue
				}
				return nil, err
			}
			for _, pm := range []models.NameMatch{models.MatchExact, models.MatchEither} {
				p, err := s.FindProgram(ctx, programName, pm, &f.ID)
				if err == nil {
					return idOf(p.ID), nil
				}
				if !isMiss(err) {
					return nil, err
				}
			}
			break
		}
	}
	return r.resolver.ResolveProgramByName(ctx, s, programName)
}
