package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-assistant/internal/pkg/common"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func recipeFixture(id, title string, minutes int, ingredients ...string) common.Recipe {
	r := common.Recipe{
		ID:           id,
		Title:        title,
		Servings:     4,
		Instructions: []string{"Cook everything together."},
		CreatedAt:    base.Add(time.Duration(minutes) * time.Minute),
	}
	for _, name := range ingredients {
		r.Ingredients = append(r.Ingredients, common.Ingredient{Name: name})
	}
	return r
}

func fixtures() []common.Recipe {
	return []common.Recipe{
		recipeFixture("soup", "Chicken Soup", 1, "chicken breast", "carrots", "celery"),
		recipeFixture("curry", "Chicken Curry", 2, "chicken thighs", "curry paste", "coconut milk"),
		recipeFixture("stew", "Beef Stew", 3, "beef chuck", "potatoes", "carrots"),
		recipeFixture("salad", "Tomato Salad", 4, "tomatoes", "basil", "olive oil"),
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"chicken", "tomato", "egg"}, tokenize("Find me a Chicken recipe with TOMATOES and eggs!"))
	assert.Empty(t, tokenize("the a of"))
}

func TestKeywordQuery(t *testing.T) {
	idx := NewKeywordIndex()
	require.NoError(t, idx.Build(context.Background(), fixtures()))

	hits, err := idx.Query(context.Background(), "chicken", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	ids := []string{hits[0].RecipeID, hits[1].RecipeID}
	assert.ElementsMatch(t, []string{"soup", "curry"}, ids)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	hits, err = idx.Query(context.Background(), "carrot stew", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "stew", hits[0].RecipeID)

	hits, err = idx.Query(context.Background(), "sushi", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQueryIsBoundedSortedAndStable(t *testing.T) {
	idx := NewKeywordIndex()
	require.NoError(t, idx.Build(context.Background(), fixtures()))

	first, err := idx.Query(context.Background(), "chicken carrots", 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(first), 2)
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
	}
	for range 20 {
		again, err := idx.Query(context.Background(), "chicken carrots", 2)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTiesBreakByNewest(t *testing.T) {
	recipes := []common.Recipe{
		recipeFixture("old", "Pancakes", 1, "flour", "milk"),
		recipeFixture("new", "Pancakes", 5, "flour", "milk"),
	}
	idx := NewKeywordIndex()
	require.NoError(t, idx.Build(context.Background(), recipes))

	hits, err := idx.Query(context.Background(), "pancakes", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "new", hits[0].RecipeID)
}

func TestInvalidKAndEmptyIndex(t *testing.T) {
	idx := NewKeywordIndex()

	hits, err := idx.Query(context.Background(), "chicken", 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)

	for _, k := range []int{0, -1} {
		_, err := idx.Query(context.Background(), "chicken", k)
		assert.True(t, errors.Is(err, common.ErrInvalidRequest))
		_, err = idx.SimilarTo(context.Background(), "soup", k)
		assert.True(t, errors.Is(err, common.ErrInvalidRequest))
	}
}

func TestKeywordSimilarTo(t *testing.T) {
	idx := NewKeywordIndex()
	require.NoError(t, idx.Build(context.Background(), fixtures()))

	hits, err := idx.SimilarTo(context.Background(), "soup", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.NotEqual(t, "soup", h.RecipeID)
	}
	// 只共用步驟用字的食譜排在最後
	assert.Equal(t, "salad", hits[len(hits)-1].RecipeID)

	_, err = idx.SimilarTo(context.Background(), "missing", 3)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestRebuildIsObservedByNextQuery(t *testing.T) {
	idx := NewKeywordIndex()
	recipes := fixtures()
	require.NoError(t, idx.Build(context.Background(), recipes))

	recipes = append(recipes, recipeFixture("ramen", "Miso Ramen", 9, "ramen noodles", "miso"))
	require.NoError(t, idx.Build(context.Background(), recipes))

	hits, err := idx.Query(context.Background(), "miso", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "ramen", hits[0].RecipeID)
}

// fakeEmbedder 以固定詞彙的出現次數當作向量
type fakeEmbedder struct {
	vocab   []string
	fail    bool
	pingErr error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if f.fail {
		return nil, errors.New("embedding service down")
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		v := make([]float64, len(f.vocab))
		for j, w := range f.vocab {
			v[j] = float64(strings.Count(lower, w))
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Ping(context.Context) error { return f.pingErr }

func TestEmbeddingIndexQuery(t *testing.T) {
	emb := &fakeEmbedder{vocab: []string{"chicken", "beef", "tomato", "carrot"}}
	idx := NewEmbeddingIndex(emb, 2)
	require.NoError(t, idx.Build(context.Background(), fixtures()))
	assert.Equal(t, ModeEmbedding, idx.Mode())

	hits, err := idx.Query(context.Background(), "beef", 2)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "stew", hits[0].RecipeID)

	similar, err := idx.SimilarTo(context.Background(), "soup", 4)
	require.NoError(t, err)
	assert.NotContains(t, hitIDs(similar), "soup")
	assert.Contains(t, hitIDs(similar), "curry")
}

func TestEmbeddingIndexDegradesToKeyword(t *testing.T) {
	emb := &fakeEmbedder{vocab: []string{"chicken"}, fail: true}
	idx := NewEmbeddingIndex(emb, 8)
	require.NoError(t, idx.Build(context.Background(), fixtures()))

	hits, err := idx.Query(context.Background(), "tomato", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "salad", hits[0].RecipeID)
}

func TestNewIndexSelectsByCapability(t *testing.T) {
	assert.Equal(t, ModeKeyword, NewIndex(context.Background(), nil, 8).Mode())

	down := &fakeEmbedder{pingErr: errors.New("no route")}
	assert.Equal(t, ModeKeyword, NewIndex(context.Background(), down, 8).Mode())

	up := &fakeEmbedder{vocab: []string{"chicken"}}
	assert.Equal(t, ModeEmbedding, NewIndex(context.Background(), up, 8).Mode())
}

func hitIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.RecipeID
	}
	return ids
}
