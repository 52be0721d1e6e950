package dto

import (
	"time"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
)

// TokenResponse is printed by the token command and returned by login
type TokenResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	Operator  string    `json:"operator"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateOperatorRequest is the body of POST /operators
type CreateOperatorRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=viewer admin"`
}

// OperatorResponse describes an operator account without its password hash
type OperatorResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOperatorResponse converts an operator for the API
func NewOperatorResponse(o *models.Operator) OperatorResponse {
	return OperatorResponse{ID: o.ID, Username: o.Username, Role: o.Role, CreatedAt: o.CreatedAt}
}

// NewOperatorResponses converts a list of operators for the API
func NewOperatorResponses(operators []models.Operator) []OperatorResponse {
	out := make([]OperatorResponse, 0, len(operators))
	for i := range operators {
		out = append(out, NewOperatorResponse(&operators[i]))
	}
	return out
}

// NewTokenResponse describes a freshly issued token
func NewTokenResponse(token, operator, role string, expiresAt time.Time) TokenResponse {
	return TokenResponse{
		Success:   true,
		Token:     token,
		TokenType: "Bearer",
		Operator:  operator,
		Role:      role,
		ExpiresAt: expiresAt,
	}
}
