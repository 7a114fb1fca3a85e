package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-assistant/internal/infrastructure/config"
)

const teriyakiMeal = `{"meals":[{
  "idMeal": "52772",
  "strMeal": "Teriyaki Chicken Casserole",
  "strCategory": "Chicken",
  "strArea": "Japanese",
  "strInstructions": "STEP 1\r\nPreheat oven to 350F.\r\nSTEP 2\r\nCombine soy sauce and brown sugar.",
  "strIngredient1": "soy sauce",
  "strMeasure1": "3/4 cup",
  "strIngredient2": "brown sugar",
  "strMeasure2": "1/2 cup",
  "strIngredient3": "chicken thighs",
  "strMeasure3": "2 lb",
  "strIngredient4": "",
  "strMeasure4": "",
  "strIngredient5": null,
  "strMeasure5": null
}]}`

func newTestClient(url string) *MealDB {
	return NewMealDB(config.WebSearchConfig{Enabled: true, BaseURL: url, RequestsPerSecond: 100, Timeout: time.Second})
}

func TestSearchByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.php", r.URL.Path)
		assert.Equal(t, "teriyaki", r.URL.Query().Get("s"))
		_, _ = w.Write([]byte(teriyakiMeal))
	}))
	defer srv.Close()

	recipes, err := newTestClient(srv.URL).Search(context.Background(), "teriyaki", 5)
	require.NoError(t, err)
	require.Len(t, recipes, 1)

	r := recipes[0]
	assert.Equal(t, "mealdb_52772", r.ID)
	assert.Equal(t, "Teriyaki Chicken Casserole", r.Title)
	require.Len(t, r.Ingredients, 3)
	assert.Equal(t, "soy sauce", r.Ingredients[0].Name)
	require.NotNil(t, r.Ingredients[0].Amount)
	assert.InDelta(t, 0.75, *r.Ingredients[0].Amount, 1e-9)
	assert.Equal(t, []string{"Preheat oven to 350F.", "Combine soy sauce and brown sugar."}, r.Instructions)
	assert.Equal(t, []string{"chicken", "japanese"}, r.DietaryTags)
	assert.True(t, r.CreatedAt.IsZero())
}

func TestSearchFallsBackToIngredientFilter(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/search.php":
			_, _ = w.Write([]byte(`{"meals":null}`))
		case "/filter.php":
			assert.Equal(t, "chicken thighs", r.URL.Query().Get("i"))
			_, _ = w.Write([]byte(`{"meals":[{"idMeal":"52772","strMeal":"Teriyaki Chicken Casserole"}]}`))
		case "/lookup.php":
			assert.Equal(t, "52772", r.URL.Query().Get("i"))
			_, _ = w.Write([]byte(teriyakiMeal))
		}
	}))
	defer srv.Close()

	recipes, err := newTestClient(srv.URL).Search(context.Background(), "chicken thighs", 3)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/search.php", "/filter.php", "/lookup.php"}, paths)
}

func TestSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meals":null}`))
	}))
	defer srv.Close()

	recipes, err := newTestClient(srv.URL).Search(context.Background(), "xyzzy", 3)
	require.NoError(t, err)
	assert.Empty(t, recipes)
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Search(context.Background(), "soup", 3)
	assert.Error(t, err)
}

func TestSearchTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewMealDB(config.WebSearchConfig{Enabled: true, BaseURL: srv.URL, RequestsPerSecond: 100, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.Search(context.Background(), "soup", 3)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDisabledClientIsNil(t *testing.T) {
	assert.Nil(t, NewMealDB(config.WebSearchConfig{Enabled: false}))
}
