// Package api 組裝 HTTP 路由與中間件
package api

import (
	"time"

	"recipe-assistant/internal/api/handlers/chat"
	"recipe-assistant/internal/api/handlers/health"
	recipeHandler "recipe-assistant/internal/api/handlers/recipe"
	"recipe-assistant/internal/api/middleware"
	"recipe-assistant/internal/app"
	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultRequestTimeout = 2 * time.Minute
	defaultMaxBodySize    = 1 << 20
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, a *app.App) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = cfg.TurnBudget()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	maxBody := cfg.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(a.Metrics))

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBody))
	router.Use(middleware.Timeout(timeout))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, a.Store, a.Queue, a.Cache())
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	if a.Metrics != nil {
		router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	}

	// API 路由組
	v1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	v1.Use(middleware.NewDeduplicator(cfg.DedupWindow).Middleware())

	chatHandler := chat.NewHandler(a.Assistant)
	v1.POST("/chat", chatHandler.Chat)
	v1.DELETE("/chat/:session_id", chatHandler.End)

	recipes := recipeHandler.NewHandler(a.Recipes, a.Store)

	// 單次操作，不需要指定已保存的食譜
	recipeGroup := v1.Group("/recipe")
	{
		recipeGroup.POST("/generate", recipes.Generate)
		recipeGroup.POST("/extract", recipes.Extract)
		recipeGroup.POST("/scale", recipes.Scale)
	}

	// 已保存的食譜
	storeGroup := v1.Group("/recipes")
	{
		storeGroup.GET("", recipes.List)
		storeGroup.GET("/search", recipes.Search)
		storeGroup.GET("/:id", recipes.Get)
		storeGroup.GET("/:id/similar", recipes.Similar)
		storeGroup.DELETE("/:id", recipes.Delete)
		storeGroup.POST("/:id/nutrition", recipes.Nutrition)
	}

	analytics := v1.Group("/analytics")
	{
		analytics.GET("/frequent", recipes.Frequent)
		analytics.GET("/count", recipes.Count)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Duration("timeout", timeout),
		zap.Int64("max_body_size", maxBody),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)
	return router
}
