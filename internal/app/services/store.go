package services

import (
	"context"
	"errors"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
)

// FacultyStore reads faculties. Lookups return apperrors.ErrFacultyNotFound on a miss.
type FacultyStore interface {
	FindFaculty(ctx context.Context, name string, match models.NameMatch) (*models.Faculty, error)
	FirstFaculty(ctx context.Context) (*models.Faculty, error)
	ListFaculties(ctx context.Context) ([]models.Faculty, error)
}

// ProgramStore reads programs. A nil facultyID searches every faculty.
// Lookups return apperrors.ErrProgramNotFound on a miss.
type ProgramStore interface {
	FindProgram(ctx context.Context, name string, match models.NameMatch, facultyID *int64) (*models.Program, error)
	FirstProgram(ctx context.Context, facultyID *int64) (*models.Program, error)
	ListPrograms(ctx context.Context, facultyID *int64) ([]models.Program, error)
	GetProgram(ctx context.Context, id int64) (*models.Program, error)
}

// AlumniStore reads and writes alumni rows.
type AlumniStore interface {
	FindAlumniByNIM(ctx context.Context, nim string) (*models.Alumni, error)
	FindAlumniByName(ctx context.Context, name string) (*models.Alumni, error)
	CreateAlumni(ctx context.Context, a *models.Alumni) (int64, error)
	UpdateAlumni(ctx context.Context, a *models.Alumni) error
}

// RespondentStore reads and writes responden rows. FindRespondentByName only
// considers rows without a NIM.
type RespondentStore interface {
	FindRespondentByNIM(ctx context.Context, nim string) (*models.Respondent, error)
	FindRespondentByName(ctx context.Context, name string) (*models.Respondent, error)
	CreateRespondent(ctx context.Context, r *models.Respondent) (int64, error)
	UpdateRespondent(ctx context.Context, r *models.Respondent) error
}

// MarkerStore links alumni to the status vocabulary.
type MarkerStore interface {
	GetOrCreateStatusOption(ctx context.Context, label models.StatusMarker) (int64, error)
	// MarkAlumni links an alumni once; it reports false when a link already existed.
	MarkAlumni(ctx context.Context, alumniID, optionID int64) (bool, error)
}

// CounterStore maintains the derived counters and dashboard totals.
type CounterStore interface {
	EnsureCounterColumns(ctx context.Context) (bool, error)
	IncrementProgramInput(ctx context.Context, programID int64, delta int) error
	IncrementFacultyInput(ctx context.Context, facultyID int64, delta int) error
	RecountProgram(ctx context.Context, programID int64) (*models.Program, error)
	RecountFaculty(ctx context.Context, facultyID int64) error
	ProgramIDsWithRespondents(ctx context.Context) ([]int64, error)
	SumProgramInput(ctx context.Context) (int64, error)
	CountRespondents(ctx context.Context) (int64, error)
	UpsertSetting(ctx context.Context, key, value string) error
}

// Store is everything a reconciliation pass touches, bound to one transaction.
type Store interface {
	FacultyStore
	ProgramStore
	AlumniStore
	RespondentStore
	MarkerStore
	CounterStore

	// Savepoint runs fn so that a failure rolls back only fn's statements.
	Savepoint(ctx context.Context, fn func() error) error
}

// PassRunner opens the transaction a pass runs in. Passes are serialized and
// the transaction commits only when fn returns nil.
type PassRunner interface {
	RunPass(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// RunStore persists the import run history outside the pass transaction.
type RunStore interface {
	CreateImportRun(ctx context.Context, run *models.ImportRun) error
	FinishImportRun(ctx context.Context, run *models.ImportRun) error
	ListImportRuns(ctx context.Context, limit int) ([]models.ImportRun, error)
}

// ReportStore serves the read-only dashboard queries.
type ReportStore interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	StatusDistribution(ctx context.Context) ([]models.StatusCount, error)
	GraduatesPerYear(ctx context.Context) ([]models.YearCount, error)
	ProgramAchievements(ctx context.Context) ([]models.ProgramAchievement, error)
	AchievementHistory(ctx context.Context, year int) ([]models.YearAchievement, error)
}

// OperatorStore persists operator accounts.
type OperatorStore interface {
	CreateOperator(ctx context.Context, o *models.Operator) error
	GetOperatorByUsername(ctx context.Context, username string) (*models.Operator, error)
	ListOperators(ctx context.Context) ([]models.Operator, error)
	DeleteOperator(ctx context.Context, id int64) error
}

// isMiss reports whether err is one of the lookup-miss sentinels.
func isMiss(err error) bool {
	return errors.Is(err, apperrors.ErrFacultyNotFound) ||
		errors.Is(err, apperrors.ErrProgramNotFound) ||
		errors.Is(err, apperrors.ErrAlumniNotFound) ||
		errors.Is(err, apperrors.ErrRespondentNotFound) ||
		errors.Is(err, apperrors.ErrResourceNotFound)
}
