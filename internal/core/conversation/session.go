package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// State 單一對話的上下文：目前聚焦的食譜與最近顯示的編號列表
type State struct {
	Focused    *common.Recipe
	LastListed []common.Recipe
	Turns      int
}

func (s *State) focus(r common.Recipe) {
	c := r.Clone()
	s.Focused = &c
}

func (s *State) list(recipes []common.Recipe) {
	s.LastListed = make([]common.Recipe, len(recipes))
	for i, r := range recipes {
		s.LastListed[i] = r.Clone()
	}
}

// Session 一個對話 session，同一 session 的回合依序處理
type Session struct {
	ID string

	turnMu   sync.Mutex
	state    State
	lastSeen time.Time
}

// Sessions session 管理：TTL 過期與數量上限
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
}

// NewSessions 創建 session 管理器
func NewSessions(cfg config.SessionConfig) *Sessions {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	limit := cfg.MaxSessions
	if limit <= 0 {
		limit = 1000
	}
	return &Sessions{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      limit,
		now:      time.Now,
	}
}

// Create 建立新 session，超過上限時淘汰最久未使用的 session
func (m *Sessions) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictExpiredLocked()
	if len(m.sessions) >= m.max {
		m.evictOldestLocked(len(m.sessions) - m.max + 1)
	}
	s := &Session{ID: common.GenerateUUID(), lastSeen: m.now()}
	m.sessions[s.ID] = s
	return s
}

// Get 取得 session 並更新最後使用時間，過期的 session 視為不存在
func (m *Sessions) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if m.now().Sub(s.lastSeen) > m.ttl {
		delete(m.sessions, id)
		return nil, false
	}
	s.lastSeen = m.now()
	return s, true
}

// GetOrCreate 找不到或已過期時建立新的 session
func (m *Sessions) GetOrCreate(id string) *Session {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s
		}
	}
	return m.Create()
}

// End 結束 session
func (m *Sessions) End(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Len 目前的 session 數量
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Cleanup 移除過期 session，回傳移除數量
func (m *Sessions) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictExpiredLocked()
}

// Run 定期清理過期 session，直到 ctx 結束
func (m *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Cleanup(); n > 0 {
				common.LogDebug("已清理過期 session", zap.Int("count", n))
			}
		}
	}
}

func (m *Sessions) evictExpiredLocked() int {
	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *Sessions) evictOldestLocked(n int) {
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].lastSeen.Before(all[j].lastSeen) })
	for i := 0; i < n && i < len(all); i++ {
		delete(m.sessions, all[i].ID)
	}
}
