// Package search 食譜語意索引：向量嵌入優先，不可用時退回 TF-IDF 關鍵字索引
package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// Mode 索引目前使用的排序方式
type Mode string

const (
	ModeEmbedding Mode = "embedding"
	ModeKeyword   Mode = "keyword"
)

// Hit 一筆排序結果
type Hit struct {
	RecipeID string  `json:"recipe_id"`
	Score    float64 `json:"score"`
}

// Index 語意索引。兩種實作可互換，呼叫端不需判斷目前模式。
//
// Build 完成後的查詢一定看得到新的資料；Build 進行中的查詢讀取上一份完整快照。
type Index interface {
	Build(ctx context.Context, recipes []common.Recipe) error
	Query(ctx context.Context, text string, k int) ([]Hit, error)
	SimilarTo(ctx context.Context, recipeID string, k int) ([]Hit, error)
	Mode() Mode
}

// Embedder 向量嵌入能力
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Ping(ctx context.Context) error
}

// NewIndex 依能力偵測選擇實作：embedder 可用時使用向量索引，否則使用關鍵字索引
func NewIndex(ctx context.Context, embedder Embedder, batchSize int) Index {
	if embedder == nil {
		common.LogInfo("語意索引使用關鍵字模式", zap.String("reason", "embedding disabled"))
		return NewKeywordIndex()
	}
	if err := embedder.Ping(ctx); err != nil {
		common.LogWarn("嵌入服務無法使用，改用關鍵字索引", zap.Error(err))
		return NewKeywordIndex()
	}
	common.LogInfo("語意索引使用向量模式", zap.Int("batch_size", batchSize))
	return NewEmbeddingIndex(embedder, batchSize)
}

// SearchableText 食譜的可搜尋文字：標題、食材名稱、步驟、主要食材與飲食標籤
func SearchableText(r *common.Recipe) string {
	parts := make([]string, 0, 2+len(r.Ingredients)+len(r.Instructions)+len(r.MainIngredients)+len(r.DietaryTags))
	parts = append(parts, r.Title)
	parts = append(parts, r.IngredientNames()...)
	parts = append(parts, r.Instructions...)
	parts = append(parts, r.MainIngredients...)
	parts = append(parts, r.DietaryTags...)
	return strings.Join(parts, "\n")
}

// document 索引內的一筆食譜
type document struct {
	id        string
	createdAt time.Time
}

func validK(k int) error {
	if k <= 0 {
		return common.WrapErrorMessage(common.ErrInvalidRequest, fmt.Sprintf("k must be positive, got %d", k), nil)
	}
	return nil
}

type scored struct {
	doc   document
	score float64
}

// rank 依分數遞減排序，同分時較新的食譜在前，再以 id 排序確保結果穩定。
// 分數先取到 1e-9，避免浮點加總順序造成的微小差異影響排序。
func rank(candidates []scored, k int) []Hit {
	for i := range candidates {
		candidates[i].score = math.Round(candidates[i].score*1e9) / 1e9
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.doc.createdAt.Equal(b.doc.createdAt) {
			return a.doc.createdAt.After(b.doc.createdAt)
		}
		return a.doc.id < b.doc.id
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = Hit{RecipeID: c.doc.id, Score: c.score}
	}
	return hits
}

func notIndexed(id string) error {
	return common.WrapErrorMessage(common.ErrNotFound, fmt.Sprintf("recipe %q is not indexed", id), nil)
}
