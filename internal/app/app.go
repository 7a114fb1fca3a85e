// Package app 組裝應用程式的所有服務，HTTP 服務與終端介面共用
package app

import (
	"context"
	"fmt"

	"recipe-assistant/internal/core/ai"
	"recipe-assistant/internal/core/ai/cache"
	"recipe-assistant/internal/core/ai/embedding"
	"recipe-assistant/internal/core/ai/openrouter"
	"recipe-assistant/internal/core/ai/queue"
	"recipe-assistant/internal/core/ai/service"
	"recipe-assistant/internal/core/conversation"
	"recipe-assistant/internal/core/intent"
	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/core/search"
	"recipe-assistant/internal/core/store"
	"recipe-assistant/internal/core/websearch"
	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/metrics"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// App 已組裝完成的服務
type App struct {
	Config     *config.Config
	Metrics    *metrics.Metrics
	Queue      *queue.Manager
	Recipes    *recipe.Service
	Store      *store.Store
	Classifier *intent.Classifier
	Sessions   *conversation.Sessions
	Assistant  *conversation.Assistant

	cache  cache.Cache
	client *openrouter.Client
}

// New 依設定建立所有服務
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:  cfg,
		Metrics: metrics.New(),
		Queue:   queue.NewManager(cfg.Queue),
	}

	generator, classifierModel := a.buildGenerator(ctx)
	a.Recipes = recipe.NewService(generator, a.Metrics)
	a.Classifier = intent.NewClassifier(classifierModel, a.Metrics)

	persister, err := store.NewPersister(ctx, cfg.Store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize recipe store backend: %w", err)
	}

	var embedder search.Embedder
	batchSize := cfg.Embedding.BatchSize
	if cfg.Embedding.Enabled {
		client := embedding.NewClient(cfg.Embedding)
		embedder = client
		batchSize = client.BatchSize()
	}
	index := search.NewIndex(ctx, embedder, batchSize)

	a.Store, err = store.New(ctx, persister, index, a.Metrics)
	if err != nil {
		_ = persister.Close()
		a.Close()
		return nil, fmt.Errorf("failed to load recipe store: %w", err)
	}

	var web websearch.Searcher
	if mealDB := websearch.NewMealDB(cfg.WebSearch); mealDB != nil {
		web = mealDB
	}

	a.Sessions = conversation.NewSessions(cfg.Session)
	a.Assistant = conversation.NewAssistant(a.Classifier, a.Recipes, a.Store, web, a.Sessions, conversation.Options{
		SearchLimit:  cfg.Store.SearchLimit,
		ModelTimeout: cfg.OpenRouter.CallBudget(),
		WebTimeout:   cfg.WebSearch.Timeout,
	})

	common.LogInfo("服務初始化完成",
		zap.String("model", cfg.OpenRouter.Model),
		zap.String("api_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("index_mode", string(a.Store.IndexMode())),
		zap.Int("recipes", a.Store.Len()),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("web_search", web != nil),
	)
	return a, nil
}

// buildGenerator 建立文字生成服務。沒有 API key 時生成一律回傳 ErrModelUnavailable，
// 分類器則只使用規則層。
func (a *App) buildGenerator(ctx context.Context) (ai.TextGenerator, ai.TextGenerator) {
	cfg := a.Config
	if cfg.OpenRouter.APIKey == "" {
		common.LogWarn("未設定 OPENROUTER_API_KEY，食譜生成將無法使用")
		unavailable := ai.GeneratorFunc(func(context.Context, ai.Prompt) (string, error) {
			return "", common.WrapErrorMessage(common.ErrModelUnavailable, "no model API key is configured", nil)
		})
		return unavailable, nil
	}

	opts := []service.Option{
		service.WithQueue(a.Queue),
		service.WithMetrics(a.Metrics),
		service.WithRetryWait(cfg.OpenRouter.RetryWait),
	}
	if cfg.Cache.Enabled {
		a.cache = cache.New(ctx, cfg.Cache)
		opts = append(opts, service.WithCache(a.cache))
	}
	a.client = openrouter.NewClient(cfg.OpenRouter)
	svc := service.NewService(a.client, opts...)
	return svc, svc
}

// Cache 模型回應快取，未啟用時為 nil
func (a *App) Cache() cache.Cache {
	return a.cache
}

// Close 釋放所有資源
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			common.LogWarn("關閉食譜庫失敗", zap.Error(err))
		}
	}
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
}
