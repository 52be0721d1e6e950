package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupSystemRoutes registers the unauthenticated health and metrics endpoints.
// An empty metricsPath disables /metrics.
func SetupSystemRoutes(router *gin.Engine, db Pinger, metricsPath string) {
	router.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeDatabaseError, "Database unavailable").
				WithSeverity(dto.ErrorSeverityCritical)
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(errorDetail))
			return
		}
		c.JSON(http.StatusOK, dto.NewAPIResponse(gin.H{"status": "ok"}))
	})

	if metricsPath != "" {
		router.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}
}
