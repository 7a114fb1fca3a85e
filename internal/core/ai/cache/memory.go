package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// Cache 模型回應快取
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Key 由 prompt 各段內容產生快取鍵
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "text:" + hex.EncodeToString(hash[:])
}

// Stats 快取統計
type Stats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRatio  float64 `json:"hit_ratio"`
}

type memoryEntry struct {
	value      string
	expiresAt  time.Time
	lastAccess time.Time
}

// Memory 行程內的 TTL 快取，超過容量時淘汰最久未使用的項目
type Memory struct {
	maxSize int
	ttl     time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
	stats   Stats
	now     func() time.Time

	done chan struct{}
	once sync.Once
}

// NewMemory 創建記憶體快取；CleanupInterval > 0 時定期清除過期項目
func NewMemory(cfg config.CacheConfig) *Memory {
	m := &Memory{
		maxSize: max(cfg.MaxSize, 1),
		ttl:     cfg.TTL,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go m.sweepEvery(cfg.CleanupInterval)
	}

	common.LogInfo("記憶體快取已初始化",
		zap.Int("max_size", m.maxSize),
		zap.Duration("ttl", cfg.TTL),
		zap.Duration("cleanup_interval", cfg.CleanupInterval),
	)
	return m
}

// Get 未命中或已過期時回傳 ErrCacheMiss
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[key]
	if ok && now.After(entry.expiresAt) {
		delete(m.entries, key)
		m.stats.Evictions++
		ok = false
	}
	if !ok {
		m.stats.Misses++
		return "", common.ErrCacheMiss
	}

	entry.lastAccess = now
	m.entries[key] = entry
	m.stats.Hits++
	common.LogDebug("快取命中", zap.String("key", key))
	return entry.value, nil
}

// Set 寫入快取，必要時先清除過期項目再淘汰最久未使用者
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxSize {
		if m.sweepLocked(now) == 0 {
			m.evictOldestLocked()
		}
	}
	m.entries[key] = memoryEntry{value: value, expiresAt: now.Add(m.ttl), lastAccess: now}
	return nil
}

// Stats 目前的統計
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Size = len(m.entries)
	s.MaxSize = m.maxSize
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}

// Close 停止清理協程並清空快取
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()
	common.LogInfo("記憶體快取已關閉",
		zap.Int64("hits", m.stats.Hits),
		zap.Int64("misses", m.stats.Misses),
		zap.Int64("evictions", m.stats.Evictions),
	)
	m.entries = make(map[string]memoryEntry)
	return nil
}

func (m *Memory) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			if n := m.sweepLocked(m.now()); n > 0 {
				common.LogDebug("已清除過期快取", zap.Int("count", n), zap.Int("remaining", len(m.entries)))
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

func (m *Memory) sweepLocked(now time.Time) int {
	n := 0
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
			n++
		}
	}
	m.stats.Evictions += int64(n)
	return n
}

func (m *Memory) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range m.entries {
		if oldestKey == "" || entry.lastAccess.Before(oldest) {
			oldestKey, oldest = key, entry.lastAccess
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
		m.stats.Evictions++
	}
}
