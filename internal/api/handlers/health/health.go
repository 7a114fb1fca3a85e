package health

import (
	"net/http"
	"runtime"
	"time"

	"recipe-assistant/internal/core/ai/cache"
	"recipe-assistant/internal/core/ai/queue"
	"recipe-assistant/internal/core/store"
	"recipe-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Cache     *cache.Stats           `json:"cache,omitempty"`
	Store     *StoreStatus           `json:"store,omitempty"`
}

// StoreStatus 食譜庫狀態
type StoreStatus struct {
	Recipes   int    `json:"recipes"`
	IndexMode string `json:"index_mode"`
}

// statsReporter 可回報統計的快取（Redis 快取沒有）
type statsReporter interface {
	Stats() cache.Stats
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	store   *store.Store
	queue   *queue.Manager
	cache   cache.Cache
}

// NewHandler 創建健康檢查處理器，store、queue 與 c 皆可為 nil
func NewHandler(version string, st *store.Store, q *queue.Manager, c cache.Cache) *Handler {
	return &Handler{version: version, store: st, queue: q, cache: c}
}

// HealthCheck 回傳版本、執行期與各服務狀態
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.queue != nil {
		response.Queue = h.queue.GetQueueStatus()
	}
	if r, ok := h.cache.(statsReporter); ok {
		stats := r.Stats()
		response.Cache = &stats
	}
	if h.store != nil {
		response.Store = &StoreStatus{
			Recipes:   h.store.Len(),
			IndexMode: string(h.store.IndexMode()),
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 食譜庫載入完成後才算就緒
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "recipe store is not loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// LivenessCheck 存活檢查
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
