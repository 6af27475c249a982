package http

import (
	"github.com/gin-gonic/gin"

	"github.com/snapfind/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/", handler.Welcome)
	router.GET("/health", handler.HealthCheck)

	// Auth endpoints
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)
	router.POST("/refresh", handler.Refresh)

	// Token-guarded endpoints
	authed := router.Group("/", AuthRequired(handler.auth.ValidateAccessToken))
	{
		authed.GET("/wishlist-protected", handler.GetWishlist)
		authed.POST("/wishlist-protected", handler.AddWishlistItem)
		authed.DELETE("/wishlist-protected", handler.DeleteWishlistItem)

		authed.POST("/analyze-image", handler.AnalyzeImage)
	}

	return router
}
