package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
	"github.com/tracerstudy/tracer-sync/internal/app/services"
	"github.com/tracerstudy/tracer-sync/internal/middleware"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/auth"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// OperatorController handles login and operator account management
type OperatorController struct {
	operatorService services.OperatorService
}

// NewOperatorController creates a new OperatorController
func NewOperatorController(operatorService services.OperatorService) *OperatorController {
	return &OperatorController{
		operatorService: operatorService,
	}
}

// Login exchanges a username and password for a bearer token
func (c *OperatorController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	session, err := c.operatorService.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		logger.Warn().Err(err).Str("username", req.Username).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(
		dto.NewTokenResponse(session.Token, session.Operator, string(session.Role), session.ExpiresAt),
	))
}

// ListOperators returns every operator account
func (c *OperatorController) ListOperators(ctx *gin.Context) {
	operators, err := c.operatorService.ListOperators(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.NewOperatorResponses(operators)))
}

// CreateOperator adds an operator account
func (c *OperatorController) CreateOperator(ctx *gin.Context) {
	var req dto.CreateOperatorRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	o, err := c.operatorService.CreateOperator(ctx.Request.Context(), req.Username, req.Password, auth.Role(req.Role))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(dto.NewOperatorResponse(o)))
}

// DeleteOperator removes an operator account other than the caller's
func (c *OperatorController) DeleteOperator(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.HandleAPIError(ctx, fmt.Errorf("%w: invalid operator id %q", apperrors.ErrBadRequest, ctx.Param("id")))
		return
	}

	if err := c.operatorService.DeleteOperator(ctx.Request.Context(), id, ctx.GetString(middleware.ContextOperator)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
