package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/config"
	"github.com/fleveque/citysnap-gateway/internal/handler"
	"github.com/fleveque/citysnap-gateway/internal/middleware"
	"github.com/fleveque/citysnap-gateway/internal/storage"
)

// Deps holds what the handlers need. LookupRepo and LLMCallRepo are nil
// when no database is configured; the admin routes are then not mounted.
type Deps struct {
	BuildingService handler.BuildingInfoBuilder
	LookupRepo      storage.LookupRepository
	LLMCallRepo     storage.LLMCallRepository
	LLMEnabled      bool
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler()
	buildingHandler := handler.NewBuildingHandler(deps.BuildingService, logger)

	// Public endpoints (no auth)
	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	api.GET("/health", healthHandler.Healthz)

	authed := api.Group("")
	authed.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	authed.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		authed.POST("/building/info", buildingHandler.Info)
	}

	if deps.LookupRepo == nil || deps.LLMCallRepo == nil {
		logger.Info("history database disabled, admin routes not mounted")
		return
	}

	adminHandler := handler.NewAdminHandler(deps.LookupRepo, deps.LLMCallRepo, deps.LLMEnabled, logger)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/lookups", adminHandler.Lookups)
	}
}
