// Package store 食譜庫：建立順序紀錄、快照讀取、統計查詢與語意搜尋
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"recipe-assistant/internal/core/search"
	"recipe-assistant/internal/metrics"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// snapshot 某一時間點的完整食譜集合，依建立時間遞增排列
type snapshot struct {
	generation uint64
	log        []common.Recipe
	byID       map[string]int
}

func newSnapshot(generation uint64, log []common.Recipe) *snapshot {
	s := &snapshot{generation: generation, log: log, byID: make(map[string]int, len(log))}
	for i, r := range log {
		s.byID[r.ID] = i
	}
	return s
}

func (s *snapshot) get(id string) (*common.Recipe, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.log[i], true
}

// Store 食譜庫。
//
// 寫入（Add / Update / Remove）一次只有一個，讀取永遠讀取最後一份完整快照而不會被阻塞。
// 索引重建在寫鎖之外進行，寫入方法在索引包含這次寫入之後才返回。
type Store struct {
	writeMu   sync.Mutex
	rebuildMu sync.Mutex
	current   atomic.Pointer[snapshot]
	indexed   uint64 // 已建入索引的快照版本，受 rebuildMu 保護

	persister Persister
	index     search.Index
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option Store 選項
type Option func(*Store)

// WithClock 替換時間來源
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New 載入已保存的食譜並建立索引
func New(ctx context.Context, persister Persister, index search.Index, m *metrics.Metrics, opts ...Option) (*Store, error) {
	if index == nil {
		index = search.NewKeywordIndex()
	}
	s := &Store{
		persister: persister,
		index:     index,
		metrics:   m,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var recipes []common.Recipe
	if persister != nil {
		loaded, err := persister.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load recipes: %w", err)
		}
		recipes = dedupe(loaded)
	}
	sort.SliceStable(recipes, func(i, j int) bool {
		return recipes[i].CreatedAt.Before(recipes[j].CreatedAt)
	})

	s.current.Store(newSnapshot(1, recipes))
	if err := s.rebuild(ctx); err != nil {
		return nil, err
	}
	s.metrics.SetStoredRecipes(len(recipes))

	common.LogInfo("食譜庫已載入",
		zap.Int("recipes", len(recipes)),
		zap.String("index_mode", string(index.Mode())),
	)
	return s, nil
}

func dedupe(recipes []common.Recipe) []common.Recipe {
	seen := make(map[string]bool, len(recipes))
	out := recipes[:0]
	for _, r := range recipes {
		if r.ID == "" || seen[r.ID] {
			common.LogWarn("略過重複或缺少 ID 的食譜", zap.String("id", r.ID), zap.String("title", r.Title))
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// Add 新增食譜並回傳實際保存的版本（含 ID 與建立時間）。
// 沒有食材也沒有步驟的食譜視為抽取失敗，不會被保存。
func (s *Store) Add(ctx context.Context, recipe common.Recipe) (common.Recipe, error) {
	if recipe.IsEmpty() {
		return common.Recipe{}, common.WrapErrorMessage(common.ErrParseFailure, "recipe has no ingredients and no instructions", nil)
	}
	r := recipe.Clone()

	saved, err := s.mutate(ctx, func(log []common.Recipe, byID map[string]int) ([]common.Recipe, error) {
		if _, taken := byID[r.ID]; r.ID == "" || taken {
			r.ID = common.NewRecipeID(r.Title)
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = s.now()
		}
		if n := len(log); n > 0 && r.CreatedAt.Before(log[n-1].CreatedAt) {
			// 建立紀錄只會往後追加
			r.CreatedAt = log[n-1].CreatedAt
		}
		return append(log, r), nil
	})
	if err != nil {
		return common.Recipe{}, err
	}

	common.LogInfo("食譜已保存",
		zap.String("id", r.ID),
		zap.String("title", r.Title),
		zap.Int("total", saved),
	)
	return r.Clone(), nil
}

// Update 以同 ID 取代既有食譜，保留原本的建立時間
func (s *Store) Update(ctx context.Context, recipe common.Recipe) (common.Recipe, error) {
	r := recipe.Clone()
	_, err := s.mutate(ctx, func(log []common.Recipe, byID map[string]int) ([]common.Recipe, error) {
		i, ok := byID[r.ID]
		if !ok {
			return nil, notFound(r.ID)
		}
		r.CreatedAt = log[i].CreatedAt
		log[i] = r
		return log, nil
	})
	if err != nil {
		return common.Recipe{}, err
	}
	return r.Clone(), nil
}

// Remove 刪除食譜
func (s *Store) Remove(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, func(log []common.Recipe, byID map[string]int) ([]common.Recipe, error) {
		i, ok := byID[id]
		if !ok {
			return nil, notFound(id)
		}
		return append(log[:i], log[i+1:]...), nil
	})
	if err != nil {
		return err
	}
	common.LogInfo("食譜已刪除", zap.String("id", id))
	return nil
}

// mutate 在寫鎖內以副本套用變更並保存，成功後發布新快照，最後在寫鎖外重建索引
func (s *Store) mutate(ctx context.Context, apply func(log []common.Recipe, byID map[string]int) ([]common.Recipe, error)) (int, error) {
	s.writeMu.Lock()
	cur := s.current.Load()
	log := make([]common.Recipe, len(cur.log))
	copy(log, cur.log)

	next, err := apply(log, cur.byID)
	if err != nil {
		s.writeMu.Unlock()
		return 0, err
	}
	if s.persister != nil {
		if err := s.persister.Save(ctx, next); err != nil {
			s.writeMu.Unlock()
			common.LogError("食譜保存失敗", zap.Error(err))
			return 0, common.WrapErrorMessage(common.ErrInternalError, "failed to persist recipes", err)
		}
	}
	s.current.Store(newSnapshot(cur.generation+1, next))
	s.writeMu.Unlock()

	s.metrics.SetStoredRecipes(len(next))
	if err := s.rebuild(ctx); err != nil {
		return 0, err
	}
	return len(next), nil
}

// rebuild 以最新快照重建索引；已被較新的重建涵蓋時直接返回
func (s *Store) rebuild(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	snap := s.current.Load()
	if snap.generation <= s.indexed {
		return nil
	}
	start := time.Now()
	if err := s.index.Build(ctx, snap.log); err != nil {
		common.LogError("索引重建失敗", zap.Error(err))
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	s.indexed = snap.generation
	common.LogDebug("索引已重建",
		zap.Int("recipes", len(snap.log)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func notFound(id string) error {
	return common.WrapErrorMessage(common.ErrNotFound, fmt.Sprintf("recipe %q not found", id), nil)
}

// Get 依 ID 取得食譜
func (s *Store) Get(id string) (common.Recipe, error) {
	r, ok := s.current.Load().get(id)
	if !ok {
		return common.Recipe{}, notFound(id)
	}
	return r.Clone(), nil
}

// Len 食譜數量
func (s *Store) Len() int {
	return len(s.current.Load().log)
}

// All 依建立順序回傳所有食譜
func (s *Store) All() []common.Recipe {
	log := s.current.Load().log
	out := make([]common.Recipe, len(log))
	for i := range log {
		out[i] = log[i].Clone()
	}
	return out
}

// Recent 最近建立的 n 筆，最新的在前
func (s *Store) Recent(n int) ([]common.Recipe, error) {
	if n <= 0 {
		return nil, common.WrapErrorMessage(common.ErrInvalidRequest, fmt.Sprintf("n must be positive, got %d", n), nil)
	}
	log := s.current.Load().log
	n = min(n, len(log))
	out := make([]common.Recipe, 0, n)
	for i := len(log) - 1; i >= len(log)-n; i-- {
		out = append(out, log[i].Clone())
	}
	return out, nil
}

// Match 搜尋結果
type Match struct {
	Recipe common.Recipe `json:"recipe"`
	Score  float64       `json:"score"`
}

// Search 委派給語意索引，依相關度排序
func (s *Store) Search(ctx context.Context, query string, k int) ([]Match, error) {
	hits, err := s.index.Query(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return s.resolve(hits), nil
}

// Similar 與指定食譜最相近的 k 筆，不含食譜本身
func (s *Store) Similar(ctx context.Context, id string, k int) ([]Match, error) {
	if _, ok := s.current.Load().get(id); !ok {
		return nil, notFound(id)
	}
	hits, err := s.index.SimilarTo(ctx, id, k)
	if err != nil {
		return nil, err
	}
	return s.resolve(hits), nil
}

func (s *Store) resolve(hits []search.Hit) []Match {
	snap := s.current.Load()
	out := make([]Match, 0, len(hits))
	for _, h := range hits {
		if r, ok := snap.get(h.RecipeID); ok {
			out = append(out, Match{Recipe: r.Clone(), Score: h.Score})
		}
	}
	return out
}

// IndexMode 目前索引模式
func (s *Store) IndexMode() search.Mode {
	return s.index.Mode()
}

// TitleCount 同一標題（正規化後）的食譜數量
type TitleCount struct {
	Title    string    `json:"title"`
	Count    int       `json:"count"`
	LatestID string    `json:"latest_id"`
	LatestAt time.Time `json:"latest_at"`
}

// TitleFrequencies 依正規化標題分組，次數多的在前；同次數時最近建立的群組在前
func (s *Store) TitleFrequencies() []TitleCount {
	log := s.current.Load().log
	groups := make(map[string]*TitleCount)
	order := make(map[string]int)
	for i, r := range log {
		key := common.NormalizeTitle(r.Title)
		g, ok := groups[key]
		if !ok {
			g = &TitleCount{}
			groups[key] = g
		}
		g.Count++
		// log 依建立時間遞增，最後看到的就是最新成員
		g.Title = r.Title
		g.LatestID = r.ID
		g.LatestAt = r.CreatedAt
		order[key] = i
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := groups[keys[i]], groups[keys[j]]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return order[keys[i]] > order[keys[j]]
	})

	out := make([]TitleCount, len(keys))
	for i, k := range keys {
		out[i] = *groups[k]
	}
	return out
}

// MostFrequent 最常建立的食譜標題；食譜庫為空時回傳 false
func (s *Store) MostFrequent() (TitleCount, bool) {
	freq := s.TitleFrequencies()
	if len(freq) == 0 {
		return TitleCount{}, false
	}
	return freq[0], true
}

// CountContaining 含有指定食材的食譜數量。
// 食材名稱比對不分大小寫且以子字串比對，所以 "chicken" 會算到 "chicken breast"。
func (s *Store) CountContaining(name string) (int, []common.Recipe, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return 0, nil, common.WrapErrorMessage(common.ErrInvalidRequest, "ingredient name is required", nil)
	}

	var matched []common.Recipe
	for _, r := range s.current.Load().log {
		for _, ing := range r.Ingredients {
			if strings.Contains(strings.ToLower(ing.Name), needle) {
				matched = append(matched, r.Clone())
				break
			}
		}
	}
	return len(matched), matched, nil
}

// FindByTitle 以標題尋找食譜：先找完全相同的標題，再找包含該名稱的標題，皆以最新的優先
func (s *Store) FindByTitle(name string) (common.Recipe, bool) {
	want := common.NormalizeTitle(name)
	if want == "" {
		return common.Recipe{}, false
	}
	log := s.current.Load().log
	for i := len(log) - 1; i >= 0; i-- {
		if common.NormalizeTitle(log[i].Title) == want {
			return log[i].Clone(), true
		}
	}
	for i := len(log) - 1; i >= 0; i-- {
		if strings.Contains(common.NormalizeTitle(log[i].Title), want) {
			return log[i].Clone(), true
		}
	}
	return common.Recipe{}, false
}

// LatestMatching 最近建立且標題、主要食材或食材名稱包含 term 的食譜；term 為空時回傳最新一筆
func (s *Store) LatestMatching(term string) (common.Recipe, bool) {
	term = strings.ToLower(strings.TrimSpace(term))
	log := s.current.Load().log
	for i := len(log) - 1; i >= 0; i-- {
		if term == "" || mentions(&log[i], term) {
			return log[i].Clone(), true
		}
	}
	return common.Recipe{}, false
}

func mentions(r *common.Recipe, term string) bool {
	if strings.Contains(strings.ToLower(r.Title), term) {
		return true
	}
	for _, m := range r.MainIngredients {
		if strings.Contains(strings.ToLower(m), term) {
			return true
		}
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Name), term) {
			return true
		}
	}
	return false
}

// Close 關閉持久化後端
func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}
