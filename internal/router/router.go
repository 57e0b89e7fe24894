package router

import (
	"github.com/gin-gonic/gin"

	"parcelscope/internal/handler"
	"parcelscope/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	analysisH *handler.AnalysisHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	api := r.Group("/api")
	api.GET("/health", healthH.Health)

	api.POST("/upload", analysisH.Upload)
	api.POST("/analyze", analysisH.Analyze)
	api.POST("/analyze/text", analysisH.AnalyzeText)
	api.POST("/validate", analysisH.Validate)
	api.POST("/export", analysisH.Export)

	files := api.Group("/files")
	files.GET("/:id", analysisH.GetFile)
	files.DELETE("/:id", analysisH.DeleteFile)

	return r
}
