package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

var facultyColumns = []string{"id", "nama", "jumlah_input"}

// FacultyRepository handles fakultas database operations
type FacultyRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewFacultyRepository creates a new FacultyRepository
func NewFacultyRepository(db DBTX) *FacultyRepository {
	return &FacultyRepository{
		db: db,
		sb: newBuilder(),
	}
}

func (r *FacultyRepository) getOne(ctx context.Context, q squirrel.SelectBuilder, what string) (*models.Faculty, error) {
	sql, args, err := q.OrderBy("id ASC").Limit(1).ToSql()
	if err != nil {
		logger.Error().Err(err).Msgf("Error building %s SQL", what)
		return nil, fmt.Errorf("failed to build %s query: %w", what, err)
	}

	f := &models.Faculty{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&f.ID, &f.Name, &f.InputCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrFacultyNotFound
		}
		logger.Error().Err(err).Msgf("Error executing %s query", what)
		return nil, fmt.Errorf("error executing %s: %w", what, err)
	}
	return f, nil
}

// FindFaculty returns the first faculty whose name matches.
func (r *FacultyRepository) FindFaculty(ctx context.Context, name string, match models.NameMatch) (*models.Faculty, error) {
	q := r.sb.Select(facultyColumns...).From("fakultas").Where(nameMatch("nama", name, match))
	return r.getOne(ctx, q, "find faculty")
}

// FirstFaculty returns the faculty with the lowest id.
func (r *FacultyRepository) FirstFaculty(ctx context.Context) (*models.Faculty, error) {
	return r.getOne(ctx, r.sb.Select(facultyColumns...).From("fakultas"), "first faculty")
}

// ListFaculties retrieves all faculties
func (r *FacultyRepository) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	sql, args, err := r.sb.Select(facultyColumns...).From("fakultas").OrderBy("id ASC").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list faculties SQL")
		return nil, fmt.Errorf("failed to build list faculties query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list faculties query")
		return nil, fmt.Errorf("error querying faculties: %w", err)
	}
	defer rows.Close()

	faculties := []models.Faculty{}
	for rows.Next() {
		var f models.Faculty
		if err := rows.Scan(&f.ID, &f.Name, &f.InputCount); err != nil {
			return nil, fmt.Errorf("error scanning faculty row: %w", err)
		}
		faculties = append(faculties, f)
	}
	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating faculty rows")
		return nil, fmt.Errorf("error iterating faculty rows: %w", err)
	}
	return faculties, nil
}

// EnsureFaculty returns the id of the faculty named name, creating it when missing.
// Only seeding creates faculties.
func (r *FacultyRepository) EnsureFaculty(ctx context.Context, name string) (int64, error) {
	sql, args, err := r.sb.Insert("fakultas").
		Columns("nama").
		Values(name).
		Suffix("ON CONFLICT (nama) DO UPDATE SET nama = EXCLUDED.nama RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building ensure faculty SQL")
		return 0, fmt.Errorf("failed to build ensure faculty query: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		logger.Error().Err(err).Str("name", name).Msg("Error executing ensure faculty query")
		return 0, fmt.Errorf("error ensuring faculty: %w", err)
	}
	return id, nil
}
