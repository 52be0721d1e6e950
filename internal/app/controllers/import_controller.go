package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
	"github.com/tracerstudy/tracer-sync/internal/app/services"
	"github.com/tracerstudy/tracer-sync/internal/middleware"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// ImportController handles file uploads and reconciliation passes
type ImportController struct {
	importService services.ImportService
	maxUpload     int64
}

// NewImportController creates a new ImportController. maxUpload is the
// largest accepted file in bytes.
func NewImportController(importService services.ImportService, maxUpload int64) *ImportController {
	return &ImportController{
		importService: importService,
		maxUpload:     maxUpload,
	}
}

// uploadOverhead is the room left for multipart framing and other form fields
// when the request body is capped.
const uploadOverhead = 1 << 20

func (c *ImportController) rejectTooLarge(ctx *gin.Context) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeFileTooLarge, "File too large").
		WithField("file").
		WithDetails(fmt.Sprintf("maximum size is %d bytes", c.maxUpload))
	ctx.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(errorDetail))
}

// readUpload returns the multipart "file" field. It writes the error response
// itself and returns false when the upload is missing or too large.
func (c *ImportController) readUpload(ctx *gin.Context) (services.Source, bool) {
	if c.maxUpload > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUpload+uploadOverhead)
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.rejectTooLarge(ctx)
			return services.Source{}, false
		}
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "File is required").
			WithField("file").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return services.Source{}, false
	}
	if c.maxUpload > 0 && fh.Size > c.maxUpload {
		c.rejectTooLarge(ctx)
		return services.Source{}, false
	}

	f, err := fh.Open()
	if err != nil {
		middleware.HandleAPIError(ctx, fmt.Errorf("failed to open upload: %w", err))
		return services.Source{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		middleware.HandleAPIError(ctx, fmt.Errorf("failed to read upload: %w", err))
		return services.Source{}, false
	}
	return services.Source{Name: fh.Filename, Data: data}, true
}

// Import runs a reconciliation pass over the uploaded file
func (c *ImportController) Import(ctx *gin.Context) {
	mode, ok := models.ParseMode(ctx.Param("mode"))
	if !ok {
		middleware.HandleAPIError(ctx, fmt.Errorf("%w: %q", apperrors.ErrUnknownMode, ctx.Param("mode")))
		return
	}

	src, ok := c.readUpload(ctx)
	if !ok {
		return
	}

	logger.Info().
		Str("mode", string(mode)).
		Str("source", src.Name).
		Str("operator", ctx.GetString(middleware.ContextOperator)).
		Msg("Import requested")

	out, err := c.importService.Import(ctx.Request.Context(), mode, src)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewOutcomeResponse(out)))
}

// Preview describes the uploaded file without writing anything
func (c *ImportController) Preview(ctx *gin.Context) {
	src, ok := c.readUpload(ctx)
	if !ok {
		return
	}

	p, err := c.importService.Preview(ctx.Request.Context(), src)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewPreviewResponse(p)))
}

// ListRuns returns the recent import runs
func (c *ImportController) ListRuns(ctx *gin.Context) {
	var q dto.ListRunsQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	runs, err := c.importService.ListRuns(ctx.Request.Context(), q.Limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewImportRunResponses(runs)))
}
