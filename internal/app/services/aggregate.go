package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// Touched collects the programs and faculties a pass changed.
type Touched struct {
	programs  map[int64]struct{}
	faculties map[int64]struct{}
}

// NewTouched creates an empty set.
func NewTouched() *Touched {
	return &Touched{programs: map[int64]struct{}{}, faculties: map[int64]struct{}{}}
}

// AddProgram marks a program, ignoring nil.
func (t *Touched) AddProgram(id *int64) {
	if id != nil {
		t.programs[*id] = struct{}{}
	}
}

// AddFaculty marks a faculty.
func (t *Touched) AddFaculty(id int64) {
	t.faculties[id] = struct{}{}
}

// Programs returns the marked programs in ascending order.
func (t *Touched) Programs() []int64 { return sortedKeys(t.programs) }

func sortedKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AggregateSummary reports what a refresh recomputed.
type AggregateSummary struct {
	Programs         int
	Faculties        int
	TotalAlumni      int64
	TotalRespondents int64
}

// AggregateUpdater restores the derived counters from exact counts.
type AggregateUpdater struct{}

// NewAggregateUpdater creates a new AggregateUpdater
func NewAggregateUpdater() *AggregateUpdater {
	return &AggregateUpdater{}
}

// Refresh recounts every touched program and its faculty, then the dashboard
// totals. withRespondentPrograms adds every program that owns a respondent.
func (u *AggregateUpdater) Refresh(ctx context.Context, s CounterStore, touched *Touched, withRespondentPrograms bool) (AggregateSummary, error) {
	if withRespondentPrograms {
		ids, err := s.ProgramIDsWithRespondents(ctx)
		if err != nil {
			return AggregateSummary{}, err
		}
		for _, id := range ids {
			touched.AddProgram(&id)
		}
	}

	programs := touched.Programs()
	for _, id := range programs {
		p, err := s.RecountProgram(ctx, id)
		if err != nil {
			return AggregateSummary{}, fmt.Errorf("failed to recount program %d: %w", id, err)
		}
		touched.AddFaculty(p.FacultyID)
	}

	faculties := sortedKeys(touched.faculties)
	for _, id := range faculties {
		if err := s.RecountFaculty(ctx, id); err != nil {
			return AggregateSummary{}, fmt.Errorf("failed to recount faculty %d: %w", id, err)
		}
	}

	summary, err := u.refreshTotals(ctx, s)
	if err != nil {
		return AggregateSummary{}, err
	}
	summary.Programs = len(programs)
	summary.Faculties = len(faculties)

	logger.Info().
		Int("programs", summary.Programs).
		Int("faculties", summary.Faculties).
		Int64("total_alumni", summary.TotalAlumni).
		Int64("total_responden", summary.TotalRespondents).
		Msg("Aggregates refreshed")
	return summary, nil
}

// RecomputeAll recounts every program and faculty. It runs after the counter
// columns have just been added to an existing schema.
func (u *AggregateUpdater) RecomputeAll(ctx context.Context, s Store) (AggregateSummary, error) {
	programs, err := s.ListPrograms(ctx, nil)
	if err != nil {
		return AggregateSummary{}, err
	}
	touched := NewTouched()
	for i := range programs {
		touched.AddProgram(&programs[i].ID)
	}
	faculties, err := s.ListFaculties(ctx)
	if err != nil {
		return AggregateSummary{}, err
	}
	for _, f := range faculties {
		touched.AddFaculty(f.ID)
	}
	logger.Info().Int("programs", len(programs)).Int("faculties", len(faculties)).Msg("Recomputing all counters")
	return u.Refresh(ctx, s, touched, false)
}

func (u *AggregateUpdater) refreshTotals(ctx context.Context, s CounterStore) (AggregateSummary, error) {
	alumni, err := s.SumProgramInput(ctx)
	if err != nil {
		return AggregateSummary{}, err
	}
	respondents, err := s.CountRespondents(ctx)
	if err != nil {
		return AggregateSummary{}, err
	}
	if err := s.UpsertSetting(ctx, models.SettingTotalAlumni, strconv.FormatInt(alumni, 10)); err != nil {
		return AggregateSummary{}, err
	}
	if err := s.UpsertSetting(ctx, models.SettingTotalRespondent, strconv.FormatInt(respondents, 10)); err != nil {
		return AggregateSummary{}, err
	}
	return AggregateSummary{TotalAlumni: alumni, TotalRespondents: respondents}, nil
}
