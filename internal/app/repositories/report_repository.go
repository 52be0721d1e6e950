package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// ReportRepository runs the read-only dashboard queries.
type ReportRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{
		db: db,
		sb: newBuilder(),
	}
}

// GetSettings returns every dashboard setting keyed by setting_key.
func (r *ReportRepository) GetSettings(ctx context.Context) (map[string]string, error) {
	sql, args, err := r.sb.Select("setting_key", "setting_value").From("dashboard_settings").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building settings SQL")
		return nil, fmt.Errorf("failed to build settings query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing settings query")
		return nil, fmt.Errorf("error querying settings: %w", err)
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("error scanning setting row: %w", err)
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// StatusDistribution counts marked alumni per status option, including empty options.
func (r *ReportRepository) StatusDistribution(ctx context.Context) ([]models.StatusCount, error) {
	sql, args, err := r.sb.Select("o.opsi", "COUNT(j.id)").
		From("opsi_jawaban o").
		LeftJoin("jawaban_opsi j ON j.opsi_jawaban_id = o.id").
		GroupBy("o.id", "o.opsi").
		OrderBy("o.id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building status distribution SQL")
		return nil, fmt.Errorf("failed to build status distribution query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing status distribution query")
		return nil, fmt.Errorf("error querying status distribution: %w", err)
	}
	defer rows.Close()

	out := []models.StatusCount{}
	for rows.Next() {
		var label string
		var c models.StatusCount
		if err := rows.Scan(&label, &c.Total); err != nil {
			return nil, fmt.Errorf("error scanning status row: %w", err)
		}
		c.Label = models.StatusMarker(label)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GraduatesPerYear counts alumni by graduation year, oldest first.
func (r *ReportRepository) GraduatesPerYear(ctx context.Context) ([]models.YearCount, error) {
	sql, args, err := r.sb.Select("tahun_lulus", "COUNT(*)").
		From("alumni").
		Where(squirrel.NotEq{"tahun_lulus": nil}).
		GroupBy("tahun_lulus").
		OrderBy("tahun_lulus").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building graduates per year SQL")
		return nil, fmt.Errorf("failed to build graduates per year query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing graduates per year query")
		return nil, fmt.Errorf("error querying graduates per year: %w", err)
	}
	defer rows.Close()

	out := []models.YearCount{}
	for rows.Next() {
		var c models.YearCount
		if err := rows.Scan(&c.Year, &c.Total); err != nil {
			return nil, fmt.Errorf("error scanning year row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ProgramAchievements lists every program with its faculty and counters.
func (r *ReportRepository) ProgramAchievements(ctx context.Context) ([]models.ProgramAchievement, error) {
	sql, args, err := r.sb.Select("f.id", "f.nama", "p.id", "p.nama", "p.jumlah_input", "p.jumlah_responden").
		From("prodi p").
		Join("fakultas f ON f.id = p.fakultas_id").
		OrderBy("f.nama", "p.nama").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building program achievements SQL")
		return nil, fmt.Errorf("failed to build program achievements query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing program achievements query")
		return nil, fmt.Errorf("error querying program achievements: %w", err)
	}
	defer rows.Close()

	out := []models.ProgramAchievement{}
	for rows.Next() {
		var a models.ProgramAchievement
		if err := rows.Scan(&a.FacultyID, &a.FacultyName, &a.ProgramID, &a.ProgramName, &a.InputCount, &a.RespondentCount); err != nil {
			return nil, fmt.Errorf("error scanning achievement row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ReportRepository) selectAchievementHistory(year int) squirrel.SelectBuilder {
	q := r.sb.Select(
		"a.tahun_lulus", "f.id", "f.nama", "p.id", "p.nama",
		"COUNT(DISTINCT a.id)", "COUNT(DISTINCT j.alumni_id)",
	).
		From("alumni a").
		Join("prodi p ON p.id = a.prodi_id").
		Join("fakultas f ON f.id = p.fakultas_id").
		LeftJoin("jawaban_opsi j ON j.alumni_id = a.id").
		Where(squirrel.NotEq{"a.tahun_lulus": nil}).
		GroupBy("a.tahun_lulus", "f.id", "f.nama", "p.id", "p.nama").
		OrderBy("a.tahun_lulus DESC", "f.nama", "p.nama")
	if year > 0 {
		q = q.Where(squirrel.Eq{"a.tahun_lulus": year})
	}
	return q
}

// AchievementHistory counts alumni and marked alumni per graduation year and
// program, newest year first. A positive year restricts the result to it.
func (r *ReportRepository) AchievementHistory(ctx context.Context, year int) ([]models.YearAchievement, error) {
	sql, args, err := r.selectAchievementHistory(year).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building achievement history SQL")
		return nil, fmt.Errorf("failed to build achievement history query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int("year", year).Msg("Error executing achievement history query")
		return nil, fmt.Errorf("error querying achievement history: %w", err)
	}
	defer rows.Close()

	out := []models.YearAchievement{}
	for rows.Next() {
		var a models.YearAchievement
		if err := rows.Scan(&a.Year, &a.FacultyID, &a.FacultyName, &a.ProgramID, &a.ProgramName, &a.AlumniCount, &a.MarkedCount); err != nil {
			return nil, fmt.Errorf("error scanning achievement history row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
