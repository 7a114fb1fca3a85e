package search

import (
	"context"
	"math"
	"strings"
	"sync/atomic"
	"unicode"

	"recipe-assistant/internal/pkg/common"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true, "by": true,
	"for": true, "from": true, "in": true, "into": true, "is": true, "it": true, "of": true, "on": true,
	"or": true, "the": true, "then": true, "to": true, "until": true, "with": true, "me": true, "my": true,
	"some": true, "something": true, "recipe": true, "recipes": true, "dish": true, "find": true,
	"show": true, "search": true, "want": true, "can": true, "you": true, "have": true, "any": true,
	"about": true, "all": true, "over": true, "your": true, "make": true, "minutes": true,
}

// tokenize 切出小寫詞，去除停用詞並做簡單的複數還原
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() >= 2 {
			raw := current.String()
			if t := stem(raw); !stopWords[raw] && !stopWords[t] {
				tokens = append(tokens, t)
			}
		}
		current.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func stem(t string) string {
	switch {
	case len(t) > 4 && strings.HasSuffix(t, "ies"):
		return t[:len(t)-3] + "y"
	case len(t) > 4 && strings.HasSuffix(t, "oes"):
		return t[:len(t)-2]
	case len(t) > 3 && strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss"):
		return t[:len(t)-1]
	}
	return t
}

// sparseVector 已正規化（L2 = 1）的 TF-IDF 向量
type sparseVector map[string]float64

func (v sparseVector) dot(o sparseVector) float64 {
	if len(o) < len(v) {
		v, o = o, v
	}
	var sum float64
	for t, w := range v {
		sum += w * o[t]
	}
	return sum
}

type keywordSnapshot struct {
	docs    []document
	vectors []sparseVector
	byID    map[string]int
	idf     map[string]float64
}

func (s *keywordSnapshot) vectorize(tokens []string) sparseVector {
	tf := make(map[string]float64)
	for _, t := range tokens {
		if _, ok := s.idf[t]; ok {
			tf[t]++
		}
	}
	v := make(sparseVector, len(tf))
	var norm float64
	for t, n := range tf {
		w := (1 + math.Log(n)) * s.idf[t]
		v[t] = w
		norm += w * w
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for t := range v {
		v[t] /= norm
	}
	return v
}

func (s *keywordSnapshot) scoreAgainst(q sparseVector, skip string, k int) []Hit {
	if len(q) == 0 {
		return []Hit{}
	}
	candidates := make([]scored, 0, len(s.docs))
	for i, doc := range s.docs {
		if doc.id == skip {
			continue
		}
		if score := q.dot(s.vectors[i]); score > 0 {
			candidates = append(candidates, scored{doc: doc, score: score})
		}
	}
	return rank(candidates, k)
}

// KeywordIndex TF-IDF 關鍵字索引（降級模式）
type KeywordIndex struct {
	snapshot atomic.Pointer[keywordSnapshot]
}

// NewKeywordIndex 創建空的關鍵字索引
func NewKeywordIndex() *KeywordIndex {
	idx := &KeywordIndex{}
	idx.snapshot.Store(buildKeywordSnapshot(nil))
	return idx
}

func buildKeywordSnapshot(recipes []common.Recipe) *keywordSnapshot {
	s := &keywordSnapshot{
		docs:    make([]document, len(recipes)),
		vectors: make([]sparseVector, len(recipes)),
		byID:    make(map[string]int, len(recipes)),
		idf:     make(map[string]float64),
	}

	tokenized := make([][]string, len(recipes))
	df := make(map[string]int)
	for i := range recipes {
		tokenized[i] = tokenize(SearchableText(&recipes[i]))
		seen := make(map[string]bool)
		for _, t := range tokenized[i] {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}
	n := float64(len(recipes))
	for t, d := range df {
		s.idf[t] = math.Log((1+n)/(1+float64(d))) + 1
	}
	for i := range recipes {
		s.docs[i] = document{id: recipes[i].ID, createdAt: recipes[i].CreatedAt}
		s.vectors[i] = s.vectorize(tokenized[i])
		s.byID[recipes[i].ID] = i
	}
	return s
}

// Build 重建索引並以原子方式替換快照
func (x *KeywordIndex) Build(_ context.Context, recipes []common.Recipe) error {
	x.snapshot.Store(buildKeywordSnapshot(recipes))
	return nil
}

// Query 依 TF-IDF 餘弦相似度排序，沒有任何共同詞的食譜不列入
func (x *KeywordIndex) Query(_ context.Context, text string, k int) ([]Hit, error) {
	if err := validK(k); err != nil {
		return nil, err
	}
	s := x.snapshot.Load()
	return s.scoreAgainst(s.vectorize(tokenize(text)), "", k), nil
}

// SimilarTo 找出與指定食譜最相近的其他食譜
func (x *KeywordIndex) SimilarTo(_ context.Context, recipeID string, k int) ([]Hit, error) {
	if err := validK(k); err != nil {
		return nil, err
	}
	s := x.snapshot.Load()
	i, ok := s.byID[recipeID]
	if !ok {
		return nil, notIndexed(recipeID)
	}
	return s.scoreAgainst(s.vectors[i], recipeID, k), nil
}

// Mode 回傳 ModeKeyword
func (x *KeywordIndex) Mode() Mode { return ModeKeyword }
