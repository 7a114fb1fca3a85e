package cache

import (
	"context"
	"errors"
	"fmt"

	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "ai:response:"

// Service Redis 緩存服務
type Service struct {
	client *redis.Client
	config config.CacheConfig
}

// NewService 創建 Redis 緩存服務並測試連接
func NewService(ctx context.Context, cfg config.CacheConfig) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewServiceWithClient(client, cfg), nil
}

// NewServiceWithClient 以既有連線建立服務
func NewServiceWithClient(client *redis.Client, cfg config.CacheConfig) *Service {
	return &Service{client: client, config: cfg}
}

// Get 獲取緩存
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	return val, nil
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Close 關閉連線
func (s *Service) Close() error {
	return s.client.Close()
}

// New 依設定選擇 Redis 或記憶體快取，Redis 無法連線時退回記憶體快取
func New(ctx context.Context, cfg config.CacheConfig) Cache {
	if cfg.RedisAddr != "" {
		svc, err := NewService(ctx, cfg)
		if err == nil {
			common.LogInfo("使用 Redis 快取")
			return svc
		}
		common.LogWarn("Redis 快取無法使用，改用記憶體快取")
	}
	return NewMemory(cfg)
}
