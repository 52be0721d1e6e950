package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/auth"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// TokenIssuer signs access tokens. *auth.JWTService implements it.
type TokenIssuer interface {
	GenerateToken(operator string, role auth.Role, ttl time.Duration) (string, time.Time, error)
}

// Session is the token handed out on a successful login.
type Session struct {
	Token     string
	Operator  string
	Role      auth.Role
	ExpiresAt time.Time
}

// OperatorService defines the interface for operator accounts
type OperatorService interface {
	Login(ctx context.Context, username, password string) (*Session, error)
	CreateOperator(ctx context.Context, username, password string, role auth.Role) (*models.Operator, error)
	ListOperators(ctx context.Context) ([]models.Operator, error)
	DeleteOperator(ctx context.Context, id int64, actor string) error
}

type operatorServiceImpl struct {
	operators OperatorStore
	tokens    TokenIssuer
}

// NewOperatorService creates a new operator service instance
func NewOperatorService(operators OperatorStore, tokens TokenIssuer) OperatorService {
	return &operatorServiceImpl{operators: operators, tokens: tokens}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Login checks the password against the stored bcrypt hash and issues a
// token carrying the operator's role. Unknown users and wrong passwords fail
// the same way.
func (s *operatorServiceImpl) Login(ctx context.Context, username, password string) (*Session, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	o, err := s.operators.GetOperatorByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrOperatorNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(o.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	role, err := auth.ParseRole(o.Role)
	if err != nil {
		return nil, fmt.Errorf("operator %s has an invalid role: %w", o.Username, err)
	}
	token, expiresAt, err := s.tokens.GenerateToken(o.Username, role, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	logger.Info().Str("operator", o.Username).Str("role", string(role)).Msg("Operator logged in")
	return &Session{Token: token, Operator: o.Username, Role: role, ExpiresAt: expiresAt}, nil
}

// CreateOperator stores a new account with a hashed password.
func (s *operatorServiceImpl) CreateOperator(ctx context.Context, username, password string, role auth.Role) (*models.Operator, error) {
	username = normalizeUsername(username)
	if len(username) < 3 || len(username) > 100 {
		return nil, fmt.Errorf("%w: username must be 3 to 100 characters", apperrors.ErrValidationFailed)
	}
	if len(password) < auth.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidationFailed, auth.MinPasswordLength)
	}
	if role == "" {
		role = auth.RoleViewer
	}
	if _, err := auth.ParseRole(string(role)); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidationFailed, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	o := &models.Operator{Username: username, PasswordHash: hash, Role: string(role)}
	if err := s.operators.CreateOperator(ctx, o); err != nil {
		return nil, err
	}

	logger.Info().Str("operator", o.Username).Str("role", o.Role).Msg("Operator created")
	return o, nil
}

// ListOperators returns every account, newest first.
func (s *operatorServiceImpl) ListOperators(ctx context.Context) ([]models.Operator, error) {
	return s.operators.ListOperators(ctx)
}

// DeleteOperator removes the account with id. actor may not delete its own
// account; tokens minted by the token command need no account at all.
func (s *operatorServiceImpl) DeleteOperator(ctx context.Context, id int64, actor string) error {
	self, err := s.operators.GetOperatorByUsername(ctx, normalizeUsername(actor))
	switch {
	case err == nil && self.ID == id:
		return fmt.Errorf("%w: cannot delete your own account", apperrors.ErrBadRequest)
	case err != nil && !errors.Is(err, apperrors.ErrOperatorNotFound):
		return err
	}
	if err := s.operators.DeleteOperator(ctx, id); err != nil {
		return err
	}
	logger.Info().Int64("operator_id", id).Str("actor", actor).Msg("Operator deleted")
	return nil
}
