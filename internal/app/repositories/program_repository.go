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

var programColumns = []string{"id", "fakultas_id", "nama", "jumlah_input", "jumlah_responden"}

// ProgramRepository handles prodi database operations
type ProgramRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewProgramRepository creates a new ProgramRepository
func NewProgramRepository(db DBTX) *ProgramRepository {
	return &ProgramRepository{
		db: db,
		sb: newBuilder(),
	}
}

func scanProgram(row pgx.Row, p *models.Program) error {
	return row.Scan(&p.ID, &p.FacultyID, &p.Name, &p.InputCount, &p.RespondentCount)
}

func (r *ProgramRepository) selectPrograms(facultyID *int64) squirrel.SelectBuilder {
	q := r.sb.Select(programColumns...).From("prodi")
	if facultyID != nil {
		q = q.Where(squirrel.Eq{"fakultas_id": *facultyID})
	}
	return q
}

func (r *ProgramRepository) getOne(ctx context.Context, q squirrel.SelectBuilder, what string) (*models.Program, error) {
	sql, args, err := q.OrderBy("id ASC").Limit(1).ToSql()
	if err != nil {
		logger.Error().Err(err).Msgf("Error building %s SQL", what)
		return nil, fmt.Errorf("failed to build %s query: %w", what, err)
	}

	p := &models.Program{}
	if err := scanProgram(r.db.QueryRow(ctx, sql, args...), p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProgramNotFound
		}
		logger.Error().Err(err).Msgf("Error executing %s query", what)
		return nil, fmt.Errorf("error executing %s: %w", what, err)
	}
	return p, nil
}

// FindProgram returns the first program whose name matches, optionally
// restricted to one faculty.
func (r *ProgramRepository) FindProgram(ctx context.Context, name string, match models.NameMatch, facultyID *int64) (*models.Program, error) {
	q := r.selectPrograms(facultyID).Where(nameMatch("nama", name, match))
	return r.getOne(ctx, q, "find program")
}

// FirstProgram returns the program with the lowest id, optionally within one faculty.
func (r *ProgramRepository) FirstProgram(ctx context.Context, facultyID *int64) (*models.Program, error) {
	return r.getOne(ctx, r.selectPrograms(facultyID), "first program")
}

// GetProgram retrieves a program by ID
func (r *ProgramRepository) GetProgram(ctx context.Context, id int64) (*models.Program, error) {
	q := r.sb.Select(programColumns...).From("prodi").Where(squirrel.Eq{"id": id})
	return r.getOne(ctx, q, "get program")
}

// ListPrograms retrieves the programs of a faculty, or all programs for a nil facultyID.
func (r *ProgramRepository) ListPrograms(ctx context.Context, facultyID *int64) ([]models.Program, error) {
	sql, args, err := r.selectPrograms(facultyID).OrderBy("id ASC").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list programs SQL")
		return nil, fmt.Errorf("failed to build list programs query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list programs query")
		return nil, fmt.Errorf("error querying programs: %w", err)
	}
	defer rows.Close()

	programs := []models.Program{}
	for rows.Next() {
		var p models.Program
		if err := scanProgram(rows, &p); err != nil {
			return nil, fmt.Errorf("error scanning program row: %w", err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating program rows: %w", err)
	}
	return programs, nil
}

// EnsureProgram returns the id of the program named name in facultyID,
// creating it when missing. Only seeding creates programs.
func (r *ProgramRepository) EnsureProgram(ctx context.Context, facultyID int64, name string) (int64, error) {
	sql, args, err := r.sb.Insert("prodi").
		Columns("fakultas_id", "nama").
		Values(facultyID, name).
		Suffix("ON CONFLICT ON CONSTRAINT prodi_fakultas_nama_key DO UPDATE SET nama = EXCLUDED.nama RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building ensure program SQL")
		return 0, fmt.Errorf("failed to build ensure program query: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		logger.Error().Err(err).Str("name", name).Int64("facultyID", facultyID).Msg("Error executing ensure program query")
		return 0, fmt.Errorf("error ensuring program: %w", err)
	}
	return id, nil
}
