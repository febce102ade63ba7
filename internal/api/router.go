package api

import (
	"time"

	guideHandler "meal-prep-planner/internal/api/handlers/guide"
	"meal-prep-planner/internal/api/handlers/health"
	"meal-prep-planner/internal/api/middleware"
	aiservice "meal-prep-planner/internal/core/ai/service"
	"meal-prep-planner/internal/core/consolidate"
	"meal-prep-planner/internal/core/extract"
	guideService "meal-prep-planner/internal/core/guide"
	"meal-prep-planner/internal/infrastructure/config"
	"meal-prep-planner/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Request body limit (1MB). Requests carry URLs and pasted text only.
const maxBodySize = 1 << 20

// SetupRouter wires middleware, services and routes. The AI service is
// built once here and injected into every component that needs it.
func SetupRouter(cfg *config.Config, aiService *aiservice.Service) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.String("model", cfg.OpenRouter.Model),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))
	router.Use(middleware.Deduplication(cfg))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	extractor := extract.NewService(cfg, aiService)
	consolidator := consolidate.NewService(cfg, aiService)

	var store guideService.Saver
	if cfg.Guides.Enabled {
		store = guideService.NewStore(cfg)
	}
	orchestrator := guideService.NewOrchestrator(cfg, aiService, extractor, consolidator, store)

	common.LogInfo("Services initialized",
		zap.Bool("ai_grouping", cfg.Consolidate.AIGrouping),
		zap.Bool("guide_saving", cfg.Guides.Enabled),
	)

	router.GET("/health", health.HealthCheck(cfg))
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	api := router.Group("/api/v1")
	{
		handler := guideHandler.NewHandler(orchestrator)

		guideGroup := api.Group("/guide")
		{
			guideGroup.POST("/stream", handler.HandleStream)
			guideGroup.POST("", handler.HandleCombine)
		}

		api.POST("/ingredients/consolidate", handler.HandleConsolidate)
	}

	common.LogInfo("Router setup completed")

	return router, nil
}
