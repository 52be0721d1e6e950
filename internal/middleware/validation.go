package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
)

// BindQuery binds and validates the query string into obj. On failure it
// writes a 400 response and returns false.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		abortValidation(c, "Invalid query parameters", err)
		return false
	}
	return true
}

// BindJSON binds and validates a JSON body into obj, like BindQuery.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		abortValidation(c, "Invalid request body", err)
		return false
	}
	return true
}

func abortValidation(c *gin.Context, message string, err error) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, message)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		messages := make([]string, 0, len(verrs))
		for _, e := range verrs {
			messages = append(messages, formatValidationError(e))
		}
		errorDetail = errorDetail.WithField(verrs[0].Field()).WithDetails(messages)
	} else {
		errorDetail = errorDetail.WithDetails(err.Error())
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
