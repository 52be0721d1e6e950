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

var respondentColumns = []string{
	"id", "nim", "nama", "email", "tahun_lulus", "prodi_id", "jumlah_input", "created_at", "updated_at",
}

// RespondentRepository handles responden database operations
type RespondentRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewRespondentRepository creates a new RespondentRepository
func NewRespondentRepository(db DBTX) *RespondentRepository {
	return &RespondentRepository{
		db: db,
		sb: newBuilder(),
	}
}

func (r *RespondentRepository) getOne(ctx context.Context, where squirrel.Sqlizer, what string) (*models.Respondent, error) {
	sql, args, err := r.sb.Select(respondentColumns...).
		From("responden").
		Where(where).
		OrderBy("id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msgf("Error building %s SQL", what)
		return nil, fmt.Errorf("failed to build %s query: %w", what, err)
	}

	resp := &models.Respondent{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&resp.ID, &resp.NIM, &resp.Name, &resp.Email, &resp.GraduationYear,
		&resp.ProgramID, &resp.InputCount, &resp.CreatedAt, &resp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRespondentNotFound
		}
		logger.Error().Err(err).Msgf("Error executing %s query", what)
		return nil, fmt.Errorf("error executing %s: %w", what, err)
	}
	return resp, nil
}

// FindRespondentByNIM retrieves a respondent by NIM
func (r *RespondentRepository) FindRespondentByNIM(ctx context.Context, nim string) (*models.Respondent, error) {
	return r.getOne(ctx, squirrel.Eq{"nim": nim}, "find respondent by nim")
}

// FindRespondentByName looks only at respondents recorded without a NIM.
func (r *RespondentRepository) FindRespondentByName(ctx context.Context, name string) (*models.Respondent, error) {
	where := squirrel.And{
		squirrel.Eq{"nim": nil},
		squirrel.Expr("LOWER(TRIM(nama)) = LOWER(?)", strings.TrimSpace(name)),
	}
	return r.getOne(ctx, where, "find respondent by name")
}

// CreateRespondent inserts a new respondent and returns its id
func (r *RespondentRepository) CreateRespondent(ctx context.Context, resp *models.Respondent) (int64, error) {
	inputCount := resp.InputCount
	if inputCount < 1 {
		inputCount = 1
	}

	sql, args, err := r.sb.Insert("responden").
		Columns("nim", "nama", "email", "tahun_lulus", "prodi_id", "jumlah_input").
		Values(resp.NIM, resp.Name, resp.Email, resp.GraduationYear, resp.ProgramID, inputCount).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create respondent SQL")
		return 0, fmt.Errorf("failed to build create respondent query: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "responden_nim_key") {
			return 0, fmt.Errorf("%w: respondent nim already exists", apperrors.ErrConflict)
		}
		logger.Error().Err(err).Msg("Error executing create respondent query")
		return 0, fmt.Errorf("error creating respondent: %w", err)
	}
	return id, nil
}

// UpdateRespondent writes every mutable column of resp back to its row.
func (r *RespondentRepository) UpdateRespondent(ctx context.Context, resp *models.Respondent) error {
	sql, args, err := r.sb.Update("responden").
		Set("nim", resp.NIM).
		Set("nama", resp.Name).
		Set("email", resp.Email).
		Set("tahun_lulus", resp.GraduationYear).
		Set("prodi_id", resp.ProgramID).
		Set("jumlah_input", resp.InputCount).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": resp.ID}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update respondent SQL")
		return fmt.Errorf("failed to build update respondent query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("respondentID", resp.ID).Msg("Error executing update respondent query")
		return fmt.Errorf("error updating respondent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRespondentNotFound
	}
	return nil
}
