package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tracerstudy/tracer-sync/internal/app/controllers"
	"github.com/tracerstudy/tracer-sync/internal/middleware"
	"github.com/tracerstudy/tracer-sync/internal/pkg/auth"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	importController *controllers.ImportController,
	dashboardController *controllers.DashboardController,
	operatorController *controllers.OperatorController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// Login is the only route reachable without a token
	public := router.Group("/api/v1")
	public.POST("/auth/login", operatorController.Login)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.JWTAuth())

	// Read-only reporting, any role
	{
		v1.GET("/dashboard", dashboardController.GetDashboard)
		v1.GET("/capaian", dashboardController.GetCapaian)
		v1.GET("/riwayat", dashboardController.GetRiwayat)
		v1.GET("/imports", importController.ListRuns)
	}

	// Uploads, passes and accounts
	admin := v1.Group("")
	admin.Use(authMiddleware.RoleRequired(auth.RoleAdmin))
	{
		admin.POST("/imports/:mode", importController.Import)
		admin.POST("/previews", importController.Preview)

		admin.GET("/operators", operatorController.ListOperators)
		admin.POST("/operators", operatorController.CreateOperator)
		admin.DELETE("/operators/:id", operatorController.DeleteOperator)
	}
}
