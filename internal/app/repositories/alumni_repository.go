package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/dberrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

var alumniColumns = []string{"id", "nim", "nama", "email", "tahun_lulus", "prodi_id", "created_at", "updated_at"}

// AlumniRepository handles alumni database operations
type AlumniRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewAlumniRepository creates a new AlumniRepository
func NewAlumniRepository(db DBTX) *AlumniRepository {
	return &AlumniRepository{
		db: db,
		sb: newBuilder(),
	}
}

func (r *AlumniRepository) getOne(ctx context.Context, where squirrel.Sqlizer, what string) (*models.Alumni, error) {
	sql, args, err := r.sb.Select(alumniColumns...).
		From("alumni").
		Where(where).
		OrderBy("id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msgf("Error building %s SQL", what)
		return nil, fmt.Errorf("failed to build %s query: %w", what, err)
	}

	a := &models.Alumni{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&a.ID, &a.NIM, &a.Name, &a.Email, &a.GraduationYear, &a.ProgramID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAlumniNotFound
		}
		logger.Error().Err(err).Msgf("Error executing %s query", what)
		return nil, fmt.Errorf("error executing %s: %w", what, err)
	}
	return a, nil
}

// FindAlumniByNIM retrieves an alumni by NIM
func (r *AlumniRepository) FindAlumniByNIM(ctx context.Context, nim string) (*models.Alumni, error) {
	return r.getOne(ctx, squirrel.Eq{"nim": nim}, "find alumni by nim")
}

// FindAlumniByName retrieves the oldest alumni whose name equals name, ignoring case.
func (r *AlumniRepository) FindAlumniByName(ctx context.Context, name string) (*models.Alumni, error) {
	return r.getOne(ctx, squirrel.Expr("LOWER(TRIM(nama)) = LOWER(?)", strings.TrimSpace(name)), "find alumni by name")
}

// CreateAlumni inserts a new alumni and returns its id
func (r *AlumniRepository) CreateAlumni(ctx context.Context, a *models.Alumni) (int64, error) {
	sql, args, err := r.sb.Insert("alumni").
		Columns("nim", "nama", "email", "tahun_lulus", "prodi_id").
		Values(a.NIM, a.Name, a.Email, a.GraduationYear, a.ProgramID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create alumni SQL")
		return 0, fmt.Errorf("failed to build create alumni query: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "alumni_nim_key") {
			return 0, fmt.Errorf("%w: alumni nim already exists", apperrors.ErrConflict)
		}
		logger.Error().Err(err).Msg("Error executing create alumni query")
		return 0, fmt.Errorf("error creating alumni: %w", err)
	}
	return id, nil
}

// UpdateAlumni writes every mutable column of a back to its row.
func (r *AlumniRepository) UpdateAlumni(ctx context.Context, a *models.Alumni) error {
	sql, args, err := r.sb.Update("alumni").
		Set("nim", a.NIM).
		Set("nama", a.Name).
		Set("email", a.Email).
		Set("tahun_lulus", a.GraduationYear).
		Set("prodi_id", a.ProgramID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": a.ID}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update alumni SQL")
		return fmt.Errorf("failed to build update alumni query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "alumni_nim_key") {
			return fmt.Errorf("%w: alumni nim already exists", apperrors.ErrConflict)
		}
		logger.Error().Err(err).Int64("alumniID", a.ID).Msg("Error executing update alumni query")
		return fmt.Errorf("error updating alumni: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAlumniNotFound
	}
	return nil
}
