package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/dberrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

var operatorColumns = []string{"id", "username", "password_hash", "role", "created_at", "updated_at"}

// OperatorRepository handles operator account database operations
type OperatorRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewOperatorRepository creates a new OperatorRepository
func NewOperatorRepository(db DBTX) *OperatorRepository {
	return &OperatorRepository{
		db: db,
		sb: newBuilder(),
	}
}

func scanOperator(row pgx.Row, o *models.Operator) error {
	return row.Scan(&o.ID, &o.Username, &o.PasswordHash, &o.Role, &o.CreatedAt, &o.UpdatedAt)
}

// CreateOperator inserts o and fills its id and timestamps
func (r *OperatorRepository) CreateOperator(ctx context.Context, o *models.Operator) error {
	sql, args, err := r.sb.Insert("operators").
		Columns("username", "password_hash", "role").
		Values(o.Username, o.PasswordHash, o.Role).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create operator SQL")
		return fmt.Errorf("failed to build create operator query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "operators_username_key") {
			return fmt.Errorf("%w: username %q is already taken", apperrors.ErrConflict, o.Username)
		}
		logger.Error().Err(err).Str("username", o.Username).Msg("Error executing create operator query")
		return fmt.Errorf("error creating operator: %w", err)
	}
	return nil
}

// GetOperatorByUsername returns the operator signing in as username
func (r *OperatorRepository) GetOperatorByUsername(ctx context.Context, username string) (*models.Operator, error) {
	sql, args, err := r.sb.Select(operatorColumns...).
		From("operators").
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get operator SQL")
		return nil, fmt.Errorf("failed to build get operator query: %w", err)
	}

	o := &models.Operator{}
	if err := scanOperator(r.db.QueryRow(ctx, sql, args...), o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOperatorNotFound
		}
		logger.Error().Err(err).Msg("Error executing get operator query")
		return nil, fmt.Errorf("error getting operator: %w", err)
	}
	return o, nil
}

// ListOperators returns every operator, newest first
func (r *OperatorRepository) ListOperators(ctx context.Context) ([]models.Operator, error) {
	sql, args, err := r.sb.Select(operatorColumns...).
		From("operators").
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list operators SQL")
		return nil, fmt.Errorf("failed to build list operators query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list operators query")
		return nil, fmt.Errorf("error querying operators: %w", err)
	}
	defer rows.Close()

	out := []models.Operator{}
	for rows.Next() {
		var o models.Operator
		if err := scanOperator(rows, &o); err != nil {
			return nil, fmt.Errorf("error scanning operator row: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeleteOperator removes the operator with id
func (r *OperatorRepository) DeleteOperator(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("operators").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete operator SQL")
		return fmt.Errorf("failed to build delete operator query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("operatorID", id).Msg("Error executing delete operator query")
		return fmt.Errorf("error deleting operator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrOperatorNotFound
	}
	return nil
}
