package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// ImportRunRepository persists the import run history
type ImportRunRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewImportRunRepository creates a new ImportRunRepository
func NewImportRunRepository(db DBTX) *ImportRunRepository {
	return &ImportRunRepository{
		db: db,
		sb: newBuilder(),
	}
}

// CreateImportRun records the start of a run
func (r *ImportRunRepository) CreateImportRun(ctx context.Context, run *models.ImportRun) error {
	sql, args, err := r.sb.Insert("import_runs").
		Columns("id", "mode", "source_name", "encoding", "skip_rows", "started_at").
		Values(run.ID, string(run.Mode), run.SourceName, run.Encoding, run.SkipRows, run.StartedAt).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create import run SQL")
		return fmt.Errorf("failed to build create import run query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("runID", run.ID.String()).Msg("Error executing create import run query")
		return fmt.Errorf("error creating import run: %w", err)
	}
	return nil
}

// FinishImportRun stores the counters and outcome of a run
func (r *ImportRunRepository) FinishImportRun(ctx context.Context, run *models.ImportRun) error {
	sql, args, err := r.sb.Update("import_runs").
		Set("inserted", run.Inserted).
		Set("updated", run.Updated).
		Set("skipped", run.Skipped).
		Set("eliminated", run.Eliminated).
		Set("total_processed", run.Total).
		Set("success", run.Success).
		Set("error", run.Error).
		Set("finished_at", run.FinishedAt).
		Where(squirrel.Eq{"id": run.ID}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building finish import run SQL")
		return fmt.Errorf("failed to build finish import run query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("runID", run.ID.String()).Msg("Error executing finish import run query")
		return fmt.Errorf("error finishing import run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("import run " + run.ID.String() + " not found")
	}
	return nil
}

// ListImportRuns returns the most recent runs first
func (r *ImportRunRepository) ListImportRuns(ctx context.Context, limit int) ([]models.ImportRun, error) {
	sql, args, err := r.sb.Select(
		"id", "mode", "source_name", "encoding", "skip_rows", "inserted", "updated", "skipped",
		"eliminated", "total_processed", "success", "error", "started_at", "finished_at",
	).
		From("import_runs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list import runs SQL")
		return nil, fmt.Errorf("failed to build list import runs query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list import runs query")
		return nil, fmt.Errorf("error querying import runs: %w", err)
	}
	defer rows.Close()

	runs := []models.ImportRun{}
	for rows.Next() {
		var run models.ImportRun
		var mode string
		if err := rows.Scan(
			&run.ID, &mode, &run.SourceName, &run.Encoding, &run.SkipRows, &run.Inserted, &run.Updated,
			&run.Skipped, &run.Eliminated, &run.Total, &run.Success, &run.Error, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning import run row: %w", err)
		}
		run.Mode = models.Mode(mode)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import run rows: %w", err)
	}
	return runs, nil
}
