package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Persister 食譜持久化：啟動時整批載入，每次寫入後整批覆寫
type Persister interface {
	// Load 讀取所有食譜，格式錯誤的紀錄會被略過而不影響其他紀錄
	Load(ctx context.Context) ([]common.Recipe, error)
	// Save 以 recipes 取代所有已保存的資料
	Save(ctx context.Context, recipes []common.Recipe) error
	Close() error
}

// NewPersister 依設定建立持久化後端
func NewPersister(ctx context.Context, cfg config.StoreConfig) (Persister, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFilePersister(cfg.Path), nil
	case "redis":
		return NewRedisPersister(ctx, cfg.RedisAddr, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// decodeRecords 逐筆解析 id → 食譜，壞掉的紀錄記錄警告後略過
func decodeRecords(raw map[string]string, source string) []common.Recipe {
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	recipes := make([]common.Recipe, 0, len(raw))
	for _, id := range ids {
		var r common.Recipe
		if err := common.ParseJSON(raw[id], &r); err != nil {
			common.LogWarn("略過格式錯誤的食譜紀錄",
				zap.String("source", source),
				zap.String("id", id),
				zap.Error(err),
			)
			continue
		}
		if r.ID == "" {
			r.ID = id
		}
		if r.Ingredients == nil {
			r.Ingredients = []common.Ingredient{}
		}
		if r.Instructions == nil {
			r.Instructions = []string{}
		}
		recipes = append(recipes, r)
	}
	return recipes
}

// FilePersister 以單一 JSON 檔保存，內容為 id → 食譜
type FilePersister struct {
	path string
}

// NewFilePersister 創建檔案持久化
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load 讀取檔案，檔案不存在時視為空的食譜庫
func (p *FilePersister) Load(_ context.Context) ([]common.Recipe, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []common.Recipe{}, nil
		}
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	if len(data) == 0 {
		return []common.Recipe{}, nil
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse recipe file %s: %w", p.path, err)
	}
	raw := make(map[string]string, len(records))
	for id, rec := range records {
		raw[id] = string(rec)
	}
	return decodeRecords(raw, p.path), nil
}

// Save 先寫入暫存檔再改名，避免寫到一半的檔案
func (p *FilePersister) Save(_ context.Context, recipes []common.Recipe) error {
	records := make(map[string]common.Recipe, len(recipes))
	for _, r := range recipes {
		records[r.ID] = r
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recipes: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write recipes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("failed to replace recipe file: %w", err)
	}
	return nil
}

// Close 無需釋放資源
func (p *FilePersister) Close() error { return nil }

// RedisPersister 以 Redis hash 保存，field 為食譜 id
type RedisPersister struct {
	client *redis.Client
	key    string
}

// NewRedisPersister 連線 Redis 並確認可用
func NewRedisPersister(ctx context.Context, addr, key string) (*RedisPersister, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisPersisterWithClient(client, key), nil
}

// NewRedisPersisterWithClient 以既有連線建立
func NewRedisPersisterWithClient(client *redis.Client, key string) *RedisPersister {
	if key == "" {
		key = "recipes"
	}
	return &RedisPersister{client: client, key: key}
}

// Load 讀取整個 hash
func (p *RedisPersister) Load(ctx context.Context) ([]common.Recipe, error) {
	raw, err := p.client.HGetAll(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes from Redis: %w", err)
	}
	return decodeRecords(raw, "redis:"+p.key), nil
}

// Save 在同一個交易內刪除並重寫整個 hash
func (p *RedisPersister) Save(ctx context.Context, recipes []common.Recipe) error {
	fields := make(map[string]interface{}, len(recipes))
	for _, r := range recipes {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal recipe %s: %w", r.ID, err)
		}
		fields[r.ID] = string(data)
	}

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, p.key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save recipes to Redis: %w", err)
	}
	return nil
}

// Close 關閉連線
func (p *RedisPersister) Close() error {
	return p.client.Close()
}
