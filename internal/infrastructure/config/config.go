package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	Embedding   EmbeddingConfig  `mapstructure:"embedding"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Store       StoreConfig      `mapstructure:"store"`
	Queue       QueueConfig      `mapstructure:"queue"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	WebSearch   WebSearchConfig  `mapstructure:"web_search"`
	Session     SessionConfig    `mapstructure:"session"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
	LogDir      string           `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RetryWait   time.Duration `mapstructure:"retry_wait"`
}

// CallBudget 一次模型呼叫含一次重試的最長時間：兩次嘗試加上中間的等待
func (c OpenRouterConfig) CallBudget() time.Duration {
	return 2*c.Timeout + c.RetryWait
}

// TurnBudget 一個對話回合最長可能花費的時間。分類與生成各是一次模型呼叫，
// 之後可能再做一次線上搜尋。
func (c *Config) TurnBudget() time.Duration {
	budget := 2 * c.OpenRouter.CallBudget()
	if c.WebSearch.Enabled {
		budget += c.WebSearch.Timeout
	}
	return budget
}

// EmbeddingConfig 向量嵌入服務設定，未啟用時搜尋退回 TF-IDF
type EmbeddingConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BatchSize int           `mapstructure:"batch_size"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisDB         int           `mapstructure:"redis_db"`
}

// StoreConfig 食譜儲存設定
type StoreConfig struct {
	Backend     string `mapstructure:"backend"` // file | redis
	Path        string `mapstructure:"path"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisKey    string `mapstructure:"redis_key"`
	SearchLimit int    `mapstructure:"search_limit"`
}

// QueueConfig 請求隊列設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// WebSearchConfig 線上食譜搜尋設定
type WebSearchConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// SessionConfig 對話 session 設定
type SessionConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxSessions int           `mapstructure:"max_sessions"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件，不存在時略過
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	_ = v.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	_ = v.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	_ = v.BindEnv("embedding.enabled", "EMBEDDING_ENABLED")
	_ = v.BindEnv("embedding.api_key", "EMBEDDING_API_KEY")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("cache.redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("store.backend", "STORE_BACKEND")
	_ = v.BindEnv("store.path", "STORE_PATH")
	_ = v.BindEnv("store.redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("web_search.enabled", "WEB_SEARCH_ENABLED")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-assistant")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	// 0 代表由 TurnBudget 推算
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.request_timeout", "0s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	// OpenRouter 設定
	v.SetDefault("openrouter.model", "mistralai/mistral-7b-instruct:free")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.max_tokens", 1000)
	v.SetDefault("openrouter.temperature", 0.7)
	v.SetDefault("openrouter.timeout", "60s")
	v.SetDefault("openrouter.retry_wait", "1s")

	// 向量嵌入設定
	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.timeout", "20s")
	v.SetDefault("embedding.batch_size", 32)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.redis_db", 0)

	// 儲存設定
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", "data/recipes.json")
	v.SetDefault("store.redis_key", "recipes")
	v.SetDefault("store.search_limit", 5)

	// 隊列設定
	v.SetDefault("queue.workers", 5)
	v.SetDefault("queue.max_size", 100)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 線上搜尋設定
	v.SetDefault("web_search.enabled", true)
	v.SetDefault("web_search.base_url", "https://www.themealdb.com/api/json/v1/1")
	v.SetDefault("web_search.requests_per_second", 2)
	v.SetDefault("web_search.timeout", "10s")

	// Session 設定
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.max_sessions", 1000)

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
// requestSlack 回合預算之外保留給路由與序列化的時間
const requestSlack = 5 * time.Second

func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	// 驗證儲存設定
	switch config.Store.Backend {
	case "file":
		if config.Store.Path == "" {
			return fmt.Errorf("store path is required for file backend")
		}
	case "redis":
		if config.Store.RedisAddr == "" {
			return fmt.Errorf("store redis_addr is required for redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", config.Store.Backend)
	}
	if config.Store.SearchLimit <= 0 {
		return fmt.Errorf("invalid store search limit")
	}

	// 驗證隊列設定
	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	if config.OpenRouter.Timeout <= 0 {
		return fmt.Errorf("invalid openrouter timeout")
	}
	if config.OpenRouter.RetryWait < 0 {
		return fmt.Errorf("invalid openrouter retry wait")
	}

	// HTTP 逾時必須容得下一個完整回合，包含模型逾時後的重試
	turn := config.TurnBudget()
	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = turn + requestSlack
	} else if config.Server.RequestTimeout < turn {
		return fmt.Errorf("server request timeout %s is shorter than one conversation turn (%s)",
			config.Server.RequestTimeout, turn)
	}
	if config.Server.WriteTimeout <= 0 {
		config.Server.WriteTimeout = config.Server.RequestTimeout + requestSlack
	} else if config.Server.WriteTimeout < config.Server.RequestTimeout {
		return fmt.Errorf("server write timeout %s is shorter than the request timeout (%s)",
			config.Server.WriteTimeout, config.Server.RequestTimeout)
	}
	if config.Embedding.Enabled && config.Embedding.BatchSize <= 0 {
		return fmt.Errorf("invalid embedding batch size")
	}
	if config.WebSearch.Enabled && config.WebSearch.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid web search rate")
	}

	return nil
}
