package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// counterColumns are the derived columns older databases may lack.
var counterColumns = []struct{ table, column string }{
	{"fakultas", "jumlah_input"},
	{"prodi", "jumlah_input"},
	{"prodi", "jumlah_responden"},
}

// CounterRepository maintains the derived jumlah_* counters and dashboard settings.
type CounterRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewCounterRepository creates a new CounterRepository
func NewCounterRepository(db DBTX) *CounterRepository {
	return &CounterRepository{
		db: db,
		sb: newBuilder(),
	}
}

// EnsureCounterColumns adds any missing counter column and reports whether it
// had to, in which case the caller recomputes every counter.
func (r *CounterRepository) EnsureCounterColumns(ctx context.Context) (bool, error) {
	added := false
	for _, c := range counterColumns {
		sql, args, err := r.sb.Select("COUNT(*)").
			From("information_schema.columns").
			Where(squirrel.Expr("table_schema = current_schema()")).
			Where(squirrel.Eq{"table_name": c.table, "column_name": c.column}).
			ToSql()
		if err != nil {
			logger.Error().Err(err).Msg("Error building counter column check SQL")
			return false, fmt.Errorf("failed to build counter column check: %w", err)
		}

		var n int
		if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
			logger.Error().Err(err).Str("table", c.table).Msg("Error checking counter column")
			return false, fmt.Errorf("error checking %s.%s: %w", c.table, c.column, err)
		}
		if n > 0 {
			continue
		}

		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s INT NOT NULL DEFAULT 0", c.table, c.column)
		if _, err := r.db.Exec(ctx, ddl); err != nil {
			logger.Error().Err(err).Str("table", c.table).Str("column", c.column).Msg("Error adding counter column")
			return false, fmt.Errorf("error adding %s.%s: %w", c.table, c.column, err)
		}
		logger.Warn().Str("table", c.table).Str("column", c.column).Msg("Added missing counter column")
		added = true
	}
	return added, nil
}

func (r *CounterRepository) increment(ctx context.Context, table string, id int64, delta int) error {
	sql, args, err := r.sb.Update(table).
		Set("jumlah_input", squirrel.Expr("jumlah_input + ?", delta)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msgf("Error building %s increment SQL", table)
		return fmt.Errorf("failed to build %s increment: %w", table, err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("table", table).Int64("id", id).Msg("Error executing increment")
		return fmt.Errorf("error incrementing %s counter: %w", table, err)
	}
	return nil
}

// IncrementProgramInput adds delta to prodi.jumlah_input.
func (r *CounterRepository) IncrementProgramInput(ctx context.Context, programID int64, delta int) error {
	return r.increment(ctx, "prodi", programID, delta)
}

// IncrementFacultyInput adds delta to fakultas.jumlah_input.
func (r *CounterRepository) IncrementFacultyInput(ctx context.Context, facultyID int64, delta int) error {
	return r.increment(ctx, "fakultas", facultyID, delta)
}

// RecountProgram sets both program counters from the rows that reference it.
func (r *CounterRepository) RecountProgram(ctx context.Context, programID int64) (*models.Program, error) {
	sql, args, err := r.sb.Update("prodi").
		Set("jumlah_input", squirrel.Expr("(SELECT COUNT(*) FROM alumni a WHERE a.prodi_id = prodi.id)")).
		Set("jumlah_responden", squirrel.Expr("(SELECT COUNT(*) FROM responden r WHERE r.prodi_id = prodi.id)")).
		Where(squirrel.Eq{"id": programID}).
		Suffix("RETURNING id, fakultas_id, nama, jumlah_input, jumlah_responden").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building recount program SQL")
		return nil, fmt.Errorf("failed to build recount program query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("programID", programID).Msg("Error executing recount program query")
		return nil, fmt.Errorf("error recounting program: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error recounting program: %w", err)
		}
		return nil, apperrors.ErrProgramNotFound
	}
	p := &models.Program{}
	if err := scanProgram(rows, p); err != nil {
		return nil, fmt.Errorf("error scanning recounted program: %w", err)
	}
	return p, rows.Err()
}

// RecountFaculty sets fakultas.jumlah_input to the sum of its programs.
func (r *CounterRepository) RecountFaculty(ctx context.Context, facultyID int64) error {
	sql, args, err := r.sb.Update("fakultas").
		Set("jumlah_input", squirrel.Expr("(SELECT COALESCE(SUM(p.jumlah_input), 0) FROM prodi p WHERE p.fakultas_id = fakultas.id)")).
		Where(squirrel.Eq{"id": facultyID}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building recount faculty SQL")
		return fmt.Errorf("failed to build recount faculty query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Int64("facultyID", facultyID).Msg("Error executing recount faculty query")
		return fmt.Errorf("error recounting faculty: %w", err)
	}
	return nil
}

// ProgramIDsWithRespondents lists every program referenced by a respondent.
func (r *CounterRepository) ProgramIDsWithRespondents(ctx context.Context) ([]int64, error) {
	sql, args, err := r.sb.Select("DISTINCT prodi_id").
		From("responden").
		Where(squirrel.NotEq{"prodi_id": nil}).
		OrderBy("prodi_id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building respondent programs SQL")
		return nil, fmt.Errorf("failed to build respondent programs query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing respondent programs query")
		return nil, fmt.Errorf("error querying respondent programs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning program id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *CounterRepository) scalar(ctx context.Context, q squirrel.SelectBuilder, what string) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msgf("Error building %s SQL", what)
		return 0, fmt.Errorf("failed to build %s query: %w", what, err)
	}

	var n int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		logger.Error().Err(err).Msgf("Error executing %s query", what)
		return 0, fmt.Errorf("error executing %s: %w", what, err)
	}
	return n, nil
}

// SumProgramInput returns the total of prodi.jumlah_input.
func (r *CounterRepository) SumProgramInput(ctx context.Context) (int64, error) {
	return r.scalar(ctx, r.sb.Select("COALESCE(SUM(jumlah_input), 0)").From("prodi"), "sum program input")
}

// CountRespondents returns the number of responden rows.
func (r *CounterRepository) CountRespondents(ctx context.Context) (int64, error) {
	return r.scalar(ctx, r.sb.Select("COUNT(*)").From("responden"), "count respondents")
}

// UpsertSetting stores a dashboard setting.
func (r *CounterRepository) UpsertSetting(ctx context.Context, key, value string) error {
	sql, args, err := r.sb.Insert("dashboard_settings").
		Columns("setting_key", "setting_value").
		Values(key, value).
		Suffix("ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = NOW()").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building upsert setting SQL")
		return fmt.Errorf("failed to build upsert setting query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Error executing upsert setting query")
		return fmt.Errorf("error saving setting %s: %w", key, err)
	}
	return nil
}
