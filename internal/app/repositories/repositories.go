package repositories

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx, so the same
// repositories serve pooled reads and the reconciliation transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// nameMatch builds the case-insensitive, whitespace-trimmed comparison of
// column against name.
func nameMatch(column, name string, match models.NameMatch) squirrel.Sqlizer {
	name = strings.TrimSpace(name)
	stored := "LOWER(TRIM(" + column + "))"
	switch match {
	case models.MatchExact:
		return squirrel.Expr(stored+" = LOWER(?)", name)
	case models.MatchContains:
		return squirrel.Expr("POSITION(LOWER(?) IN "+stored+") > 0", name)
	default:
		return squirrel.Or{
			squirrel.Expr("POSITION(LOWER(?) IN "+stored+") > 0", name),
			squirrel.Expr("POSITION("+stored+" IN LOWER(?)) > 0", name),
		}
	}
}

// Repositories holds all the repository instances
type Repositories struct {
	FacultyRepository    *FacultyRepository
	ProgramRepository    *ProgramRepository
	AlumniRepository     *AlumniRepository
	RespondentRepository *RespondentRepository
	StatusRepository     *StatusRepository
	CounterRepository    *CounterRepository
	ImportRunRepository  *ImportRunRepository
	ReportRepository     *ReportRepository
	OperatorRepository   *OperatorRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		FacultyRepository:    NewFacultyRepository(db),
		ProgramRepository:    NewProgramRepository(db),
		AlumniRepository:     NewAlumniRepository(db),
		RespondentRepository: NewRespondentRepository(db),
		StatusRepository:     NewStatusRepository(db),
		CounterRepository:    NewCounterRepository(db),
		ImportRunRepository:  NewImportRunRepository(db),
		ReportRepository:     NewReportRepository(db),
		OperatorRepository:   NewOperatorRepository(db),
	}
}
