package router

import (
	"github.com/gin-gonic/gin"

	"ormd/internal/config"
	"ormd/internal/handler"
	"ormd/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	scanH *handler.ScanHandler,
	registryH *handler.RegistryHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Scan lifecycle: upload, status, review, retry
	scans := v1.Group("/scans")
	scans.POST("", scanH.Upload)
	scans.GET("", scanH.List)
	scans.GET("/:id", scanH.GetByID)
	scans.GET("/:id/url", scanH.GetViewURL)
	scans.POST("/:id/retry", scanH.Retry)
	scans.POST("/:id/review", scanH.Review)

	// Digitized registry
	citizens := v1.Group("/citizens")
	citizens.GET("", registryH.List)
	citizens.GET("/:id", registryH.GetByID)

	// Registry downloads
	export := v1.Group("/export")
	export.GET("/csv", registryH.ExportCSV)
	export.GET("/xlsx", registryH.ExportXLSX)

	return r
}
