package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// StatusRepository handles the opsi_jawaban vocabulary and jawaban_opsi links.
type StatusRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewStatusRepository creates a new StatusRepository
func NewStatusRepository(db DBTX) *StatusRepository {
	return &StatusRepository{
		db: db,
		sb: newBuilder(),
	}
}

// GetOrCreateStatusOption returns the id of label, inserting it on first use.
func (r *StatusRepository) GetOrCreateStatusOption(ctx context.Context, label models.StatusMarker) (int64, error) {
	sql, args, err := r.sb.Insert("opsi_jawaban").
		Columns("opsi").
		Values(string(label)).
		Suffix("ON CONFLICT (opsi) DO UPDATE SET opsi = EXCLUDED.opsi RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building status option SQL")
		return 0, fmt.Errorf("failed to build status option query: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		logger.Error().Err(err).Str("label", string(label)).Msg("Error executing status option query")
		return 0, fmt.Errorf("error getting status option: %w", err)
	}
	return id, nil
}

// MarkAlumni links an alumni to a status option unless it already has one.
func (r *StatusRepository) MarkAlumni(ctx context.Context, alumniID, optionID int64) (bool, error) {
	sql, args, err := r.sb.Insert("jawaban_opsi").
		Columns("alumni_id", "opsi_jawaban_id").
		Values(alumniID, optionID).
		Suffix("ON CONFLICT (alumni_id) DO NOTHING").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building mark alumni SQL")
		return false, fmt.Errorf("failed to build mark alumni query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("alumniID", alumniID).Msg("Error executing mark alumni query")
		return false, fmt.Errorf("error marking alumni: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
