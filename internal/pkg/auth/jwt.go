package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
)

// JWT errors
var (
	ErrInvalidToken  = apperrors.ErrTokenInvalid
	ErrExpiredToken  = apperrors.ErrTokenExpired
	ErrInvalidFormat = fmt.Errorf("%w: invalid token format", apperrors.ErrTokenInvalid)
)

// Role is the access level carried in a token.
type Role string

const (
	// RoleViewer may read dashboard and report endpoints.
	RoleViewer Role = "viewer"
	// RoleAdmin may additionally upload files and run reconciliation passes.
	RoleAdmin Role = "admin"
)

// Allows reports whether r grants at least the access of required.
func (r Role) Allows(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleViewer:
		return RoleViewer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// JWTConfig defines JWT configuration settings
type JWTConfig struct {
	SecretKey      string
	AccessTokenExp time.Duration
	TokenIssuer    string
}

// JWTService handles JWT operations
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{
		config: config,
	}
}

// Claims defines JWT token content
type Claims struct {
	Operator string `json:"operator"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an access token for an operator. A zero ttl uses the configured expiry.
func (s *JWTService) GenerateToken(operator string, role Role, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.config.AccessTokenExp
	}
	now := time.Now()
	expiry := now.Add(ttl)

	claims := &Claims{
		Operator: operator,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.TokenIssuer,
			Subject:   operator,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create access token: %w", err)
	}
	return signed, expiry, nil
}

// ValidateToken validates a token
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	}, jwt.WithIssuer(s.config.TokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Operator == "" {
		return nil, ErrInvalidToken
	}
	if _, err := ParseRole(string(claims.Role)); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearerToken extracts the token from the Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidFormat
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")), nil
	}

	return authHeader, nil
}
