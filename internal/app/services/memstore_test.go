package services

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
)

// memStore is an in-memory Store. Savepoints and passes restore a snapshot on error.
type memStore struct {
	faculties   []models.Faculty
	programs    []models.Program
	alumni      []models.Alumni
	respondents []models.Respondent
	options     []models.StatusOption
	links       map[int64]int64
	settings    map[string]string
	nextID      int64

	columnsMissing bool
	// fail lets a test inject an error into an operation.
	fail func(op string, arg any) error
}

func newMemStore() *memStore {
	return &memStore{links: map[int64]int64{}, settings: map[string]string{}, nextID: 1000}
}

func (s *memStore) addFaculty(name string) int64 {
	s.nextID++
	s.faculties = append(s.faculties, models.Faculty{ID: s.nextID, Name: name})
	return s.nextID
}

func (s *memStore) addProgram(facultyID int64, name string) int64 {
	s.nextID++
	s.programs = append(s.programs, models.Program{ID: s.nextID, FacultyID: facultyID, Name: name})
	return s.nextID
}

type memSnapshot struct {
	faculties   []models.Faculty
	programs    []models.Program
	alumni      []models.Alumni
	respondents []models.Respondent
	options     []models.StatusOption
	links       map[int64]int64
	settings    map[string]string
	nextID      int64
}

func (s *memStore) snapshot() memSnapshot {
	return memSnapshot{
		faculties:   slices.Clone(s.faculties),
		programs:    slices.Clone(s.programs),
		alumni:      slices.Clone(s.alumni),
		respondents: slices.Clone(s.respondents),
		options:     slices.Clone(s.options),
		links:       maps.Clone(s.links),
		settings:    maps.Clone(s.settings),
		nextID:      s.nextID,
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.faculties = snap.faculties
	s.programs = snap.programs
	s.alumni = snap.alumni
	s.respondents = snap.respondents
	s.options = snap.options
	s.links = snap.links
	s.settings = snap.settings
	s.nextID = snap.nextID
}

func (s *memStore) check(op string, arg any) error {
	if s.fail == nil {
		return nil
	}
	return s.fail(op, arg)
}

func key(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

func nameMatches(stored, input string, match models.NameMatch) bool {
	a, b := key(stored), key(input)
	switch match {
	case models.MatchExact:
		return a == b
	case models.MatchContains:
		return strings.Contains(a, b)
	default:
		return strings.Contains(a, b) || strings.Contains(b, a)
	}
}

func (s *memStore) FindFaculty(_ context.Context, name string, match models.NameMatch) (*models.Faculty, error) {
	for _, f := range s.faculties {
		if nameMatches(f.Name, name, match) {
			f := f
			return &f, nil
		}
	}
	return nil, apperrors.ErrFacultyNotFound
}

func (s *memStore) FirstFaculty(_ context.Context) (*models.Faculty, error) {
	if len(s.faculties) == 0 {
		return nil, apperrors.ErrFacultyNotFound
	}
	f := s.faculties[0]
	return &f, nil
}

func (s *memStore) ListFaculties(_ context.Context) ([]models.Faculty, error) {
	return slices.Clone(s.faculties), nil
}

func (s *memStore) FindProgram(_ context.Context, name string, match models.NameMatch, facultyID *int64) (*models.Program, error) {
	for _, p := range s.programs {
		if facultyID != nil && p.FacultyID != *facultyID {
			continue
		}
		if nameMatches(p.Name, name, match) {
			p := p
			return &p, nil
		}
	}
	return nil, apperrors.ErrProgramNotFound
}

func (s *memStore) FirstProgram(ctx context.Context, facultyID *int64) (*models.Program, error) {
	list, _ := s.ListPrograms(ctx, facultyID)
	if len(list) == 0 {
		return nil, apperrors.ErrProgramNotFound
	}
	return &list[0], nil
}

func (s *memStore) ListPrograms(_ context.Context, facultyID *int64) ([]models.Program, error) {
	var out []models.Program
	for _, p := range s.programs {
		if facultyID == nil || p.FacultyID == *facultyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) GetProgram(_ context.Context, id int64) (*models.Program, error) {
	for _, p := range s.programs {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, apperrors.ErrProgramNotFound
}

func (s *memStore) program(id int64) *models.Program {
	for i := range s.programs {
		if s.programs[i].ID == id {
			return &s.programs[i]
		}
	}
	return nil
}

func (s *memStore) FindAlumniByNIM(_ context.Context, nim string) (*models.Alumni, error) {
	for _, a := range s.alumni {
		if a.NIM != nil && *a.NIM == nim {
			return &a, nil
		}
	}
	return nil, apperrors.ErrAlumniNotFound
}

func (s *memStore) FindAlumniByName(_ context.Context, name string) (*models.Alumni, error) {
	for _, a := range s.alumni {
		if key(a.Name) == key(name) {
			return &a, nil
		}
	}
	return nil, apperrors.ErrAlumniNotFound
}

func (s *memStore) CreateAlumni(_ context.Context, a *models.Alumni) (int64, error) {
	if err := s.check("CreateAlumni", a.Name); err != nil {
		return 0, err
	}
	if a.NIM != nil {
		for _, existing := range s.alumni {
			if existing.NIM != nil && *existing.NIM == *a.NIM {
				return 0, apperrors.ErrConflict
			}
		}
	}
	s.nextID++
	c := *a
	c.ID = s.nextID
	s.alumni = append(s.alumni, c)
	return c.ID, nil
}

func (s *memStore) UpdateAlumni(_ context.Context, a *models.Alumni) error {
	if err := s.check("UpdateAlumni", a.Name); err != nil {
		return err
	}
	for i := range s.alumni {
		if s.alumni[i].ID == a.ID {
			s.alumni[i] = *a
			return nil
		}
	}
	return apperrors.ErrAlumniNotFound
}

func (s *memStore) FindRespondentByNIM(_ context.Context, nim string) (*models.Respondent, error) {
	for _, r := range s.respondents {
		if r.NIM != nil && *r.NIM == nim {
			return &r, nil
		}
	}
	return nil, apperrors.ErrRespondentNotFound
}

func (s *memStore) FindRespondentByName(_ context.Context, name string) (*models.Respondent, error) {
	for _, r := range s.respondents {
		if r.NIM == nil && key(r.Name) == key(name) {
			return &r, nil
		}
	}
	return nil, apperrors.ErrRespondentNotFound
}

func (s *memStore) CreateRespondent(_ context.Context, r *models.Respondent) (int64, error) {
	s.nextID++
	c := *r
	c.ID = s.nextID
	s.respondents = append(s.respondents, c)
	return c.ID, nil
}

func (s *memStore) UpdateRespondent(_ context.Context, r *models.Respondent) error {
	for i := range s.respondents {
		if s.respondents[i].ID == r.ID {
			s.respondents[i] = *r
			return nil
		}
	}
	return apperrors.ErrRespondentNotFound
}

func (s *memStore) GetOrCreateStatusOption(_ context.Context, label models.StatusMarker) (int64, error) {
	for _, o := range s.options {
		if o.Label == label {
			return o.ID, nil
		}
	}
	s.nextID++
	s.options = append(s.options, models.StatusOption{ID: s.nextID, Label: label})
	return s.nextID, nil
}

func (s *memStore) MarkAlumni(_ context.Context, alumniID, optionID int64) (bool, error) {
	if _, ok := s.links[alumniID]; ok {
		return false, nil
	}
	s.links[alumniID] = optionID
	return true, nil
}

func (s *memStore) marker(alumniID int64) models.StatusMarker {
	id, ok := s.links[alumniID]
	if !ok {
		return ""
	}
	for _, o := range s.options {
		if o.ID == id {
			return o.Label
		}
	}
	return ""
}

func (s *memStore) EnsureCounterColumns(_ context.Context) (bool, error) {
	added := s.columnsMissing
	s.columnsMissing = false
	return added, nil
}

func (s *memStore) IncrementProgramInput(_ context.Context, programID int64, delta int) error {
	if p := s.program(programID); p != nil {
		p.InputCount += int64(delta)
	}
	return nil
}

func (s *memStore) IncrementFacultyInput(_ context.Context, facultyID int64, delta int) error {
	for i := range s.faculties {
		if s.faculties[i].ID == facultyID {
			s.faculties[i].InputCount += int64(delta)
		}
	}
	return nil
}

func (s *memStore) RecountProgram(_ context.Context, programID int64) (*models.Program, error) {
	p := s.program(programID)
	if p == nil {
		return nil, apperrors.ErrProgramNotFound
	}
	var alumni, respondents int64
	for _, a := range s.alumni {
		if a.ProgramID != nil && *a.ProgramID == programID {
			alumni++
		}
	}
	for _, r := range s.respondents {
		if r.ProgramID != nil && *r.ProgramID == programID {
			respondents++
		}
	}
	p.InputCount, p.RespondentCount = alumni, respondents
	c := *p
	return &c, nil
}

func (s *memStore) RecountFaculty(_ context.Context, facultyID int64) error {
	var sum int64
	for _, p := range s.programs {
		if p.FacultyID == facultyID {
			sum += p.InputCount
		}
	}
	for i := range s.faculties {
		if s.faculties[i].ID == facultyID {
			s.faculties[i].InputCount = sum
		}
	}
	return nil
}

func (s *memStore) ProgramIDsWithRespondents(_ context.Context) ([]int64, error) {
	seen := map[int64]bool{}
	var out []int64
	for _, r := range s.respondents {
		if r.ProgramID != nil && !seen[*r.ProgramID] {
			seen[*r.ProgramID] = true
			out = append(out, *r.ProgramID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *memStore) SumProgramInput(_ context.Context) (int64, error) {
	var sum int64
	for _, p := range s.programs {
		sum += p.InputCount
	}
	return sum, nil
}

func (s *memStore) CountRespondents(_ context.Context) (int64, error) {
	return int64(len(s.respondents)), nil
}

func (s *memStore) UpsertSetting(_ context.Context, key, value string) error {
	s.settings[key] = value
	return nil
}

func (s *memStore) Savepoint(_ context.Context, fn func() error) error {
	snap := s.snapshot()
	if err := fn(); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// RunPass implements PassRunner over the same memory.
func (s *memStore) RunPass(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	snap := s.snapshot()
	if err := fn(ctx, s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// memRuns is an in-memory RunStore.
type memRuns struct {
	runs []models.ImportRun
}

func (r *memRuns) CreateImportRun(_ context.Context, run *models.ImportRun) error {
	r.runs = append(r.runs, *run)
	return nil
}

func (r *memRuns) FinishImportRun(_ context.Context, run *models.ImportRun) error {
	for i := range r.runs {
		if r.runs[i].ID == run.ID {
			r.runs[i] = *run
			return nil
		}
	}
	return errors.New("run not found")
}

func (r *memRuns) ListImportRuns(_ context.Context, limit int) ([]models.ImportRun, error) {
	out := slices.Clone(r.runs)
	slices.Reverse(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) alumniByNIM(nim string) *models.Alumni {
	for i := range s.alumni {
		if s.alumni[i].NIM != nil && *s.alumni[i].NIM == nim {
			return &s.alumni[i]
		}
	}
	return nil
}
