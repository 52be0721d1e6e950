package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/dberrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.JSON(status, dto.NewErrorResponse(detail))
}

func classify(err error) (int, *dto.ErrorDetail) {
	var custom *apperrors.CustomError
	message := err.Error()
	if errors.As(err, &custom) {
		message = custom.Error()
	}

	switch {
	case errors.Is(err, apperrors.ErrUnreadableInput):
		return http.StatusUnprocessableEntity, dto.NewErrorDetail(dto.ErrorCodeUnreadableInput, message)
	case errors.Is(err, apperrors.ErrMissingColumn):
		d := dto.NewErrorDetail(dto.ErrorCodeMissingColumn, message)
		if custom != nil && custom.Details != nil {
			if field, ok := custom.Details["field"].(string); ok {
				d = d.WithField(field)
			}
		}
		return http.StatusUnprocessableEntity, d
	case errors.Is(err, apperrors.ErrUnknownMode):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeUnknownMode, message)
	case apperrors.Is(err, apperrors.ErrResourceNotFound, apperrors.ErrFacultyNotFound, apperrors.ErrProgramNotFound, apperrors.ErrOperatorNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Resource not found")
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied")
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid username or password")
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")
	case apperrors.Is(err, apperrors.ErrValidationFailed, apperrors.ErrBadRequest):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, message)
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, message)
	case dberrors.IsConnectionError(err):
		return http.StatusServiceUnavailable, dto.NewErrorDetail(dto.ErrorCodeDatabaseError, "Database unavailable").
			WithSeverity(dto.ErrorSeverityCritical)
	default:
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}
