package search

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 同時進行的嵌入請求數
const embedConcurrency = 4

type embeddingSnapshot struct {
	docs    []document
	vectors [][]float64 // nil 代表本次重建嵌入失敗，查詢改走關鍵字索引
	byID    map[string]int
}

// EmbeddingIndex 向量嵌入索引，嵌入失敗時以內建的關鍵字索引回應
type EmbeddingIndex struct {
	embedder  Embedder
	batchSize int
	keyword   *KeywordIndex
	snapshot  atomic.Pointer[embeddingSnapshot]
}

// NewEmbeddingIndex 創建向量索引
func NewEmbeddingIndex(embedder Embedder, batchSize int) *EmbeddingIndex {
	if batchSize <= 0 {
		batchSize = 32
	}
	idx := &EmbeddingIndex{
		embedder:  embedder,
		batchSize: batchSize,
		keyword:   NewKeywordIndex(),
	}
	idx.snapshot.Store(&embeddingSnapshot{byID: map[string]int{}})
	return idx
}

// Build 分批並行取得所有食譜的向量後替換快照
func (x *EmbeddingIndex) Build(ctx context.Context, recipes []common.Recipe) error {
	if err := x.keyword.Build(ctx, recipes); err != nil {
		return err
	}

	s := &embeddingSnapshot{
		docs: make([]document, len(recipes)),
		byID: make(map[string]int, len(recipes)),
	}
	texts := make([]string, len(recipes))
	for i := range recipes {
		s.docs[i] = document{id: recipes[i].ID, createdAt: recipes[i].CreatedAt}
		s.byID[recipes[i].ID] = i
		texts[i] = SearchableText(&recipes[i])
	}

	vectors, err := x.embedAll(ctx, texts)
	if err != nil {
		common.LogWarn("重建向量索引失敗，暫時使用關鍵字排序",
			zap.Int("recipes", len(recipes)),
			zap.Error(err),
		)
	} else {
		s.vectors = vectors
	}
	x.snapshot.Store(s)
	return nil
}

func (x *EmbeddingIndex) embedAll(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(texts); start += x.batchSize {
		end := min(start+x.batchSize, len(texts))
		g.Go(func() error {
			batch, err := x.embedder.Embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embedding batch %d-%d: got %d vectors", start, end, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Query 以查詢文字的向量計算餘弦相似度；嵌入失敗時退回關鍵字排序
func (x *EmbeddingIndex) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if err := validK(k); err != nil {
		return nil, err
	}
	s := x.snapshot.Load()
	if s.vectors == nil {
		return x.keyword.Query(ctx, text, k)
	}
	if len(s.docs) == 0 {
		return []Hit{}, nil
	}

	qv, err := x.embedder.Embed(ctx, []string{text})
	if err != nil || len(qv) != 1 {
		common.LogWarn("查詢嵌入失敗，改用關鍵字排序", zap.Error(err))
		return x.keyword.Query(ctx, text, k)
	}
	return s.scoreAgainst(qv[0], "", k), nil
}

// SimilarTo 以食譜本身的向量找出相近食譜
func (x *EmbeddingIndex) SimilarTo(ctx context.Context, recipeID string, k int) ([]Hit, error) {
	if err := validK(k); err != nil {
		return nil, err
	}
	s := x.snapshot.Load()
	if s.vectors == nil {
		return x.keyword.SimilarTo(ctx, recipeID, k)
	}
	i, ok := s.byID[recipeID]
	if !ok {
		return nil, notIndexed(recipeID)
	}
	return s.scoreAgainst(s.vectors[i], recipeID, k), nil
}

// Mode 回傳 ModeEmbedding
func (x *EmbeddingIndex) Mode() Mode { return ModeEmbedding }

func (s *embeddingSnapshot) scoreAgainst(q []float64, skip string, k int) []Hit {
	candidates := make([]scored, 0, len(s.docs))
	for i, doc := range s.docs {
		if doc.id == skip {
			continue
		}
		if score := cosine(q, s.vectors[i]); score > 0 {
			candidates = append(candidates, scored{doc: doc, score: score})
		}
	}
	return rank(candidates, k)
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
