// Package websearch 線上食譜搜尋（TheMealDB），本地沒有結果時使用
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxMealIngredients = 20

// Searcher 線上食譜搜尋
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]common.Recipe, error)
}

// MealDB TheMealDB 客戶端，每個請求都受速率限制與逾時約束
type MealDB struct {
	client  *resty.Client
	limiter *rate.Limiter
	timeout time.Duration
}

var _ Searcher = (*MealDB)(nil)

// meal API 回傳的一道菜，食材與份量以 strIngredient1..20 / strMeasure1..20 分欄
type meal map[string]*string

type mealsResponse struct {
	Meals []meal `json:"meals"`
}

func (m meal) field(name string) string {
	if v := m[name]; v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}

// NewMealDB 創建客戶端，未啟用時回傳 nil
func NewMealDB(cfg config.WebSearchConfig) *MealDB {
	if !cfg.Enabled {
		return nil
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MealDB{
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetHeader("Accept", "application/json"),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		timeout: timeout,
	}
}

// Search 以名稱搜尋，沒有結果時改以主要食材搜尋。回傳的食譜不會被保存。
func (c *MealDB) Search(ctx context.Context, query string, limit int) ([]common.Recipe, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []common.Recipe{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	meals, err := c.fetch(ctx, "/search.php", "s", query)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		// filter.php 只回傳 id 與名稱
		brief, err := c.fetch(ctx, "/filter.php", "i", query)
		if err != nil {
			return nil, err
		}
		for _, b := range brief {
			if len(meals) >= limit {
				break
			}
			full, err := c.fetch(ctx, "/lookup.php", "i", b.field("idMeal"))
			if err != nil {
				return nil, err
			}
			meals = append(meals, full...)
		}
	}

	out := make([]common.Recipe, 0, min(limit, len(meals)))
	for _, m := range meals {
		if len(out) >= limit {
			break
		}
		out = append(out, toRecipe(m))
	}
	common.LogInfo("線上食譜搜尋完成", zap.String("query", query), zap.Int("results", len(out)))
	return out, nil
}

func (c *MealDB) fetch(ctx context.Context, path, param, value string) ([]meal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("web search rate limit: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam(param, value).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to query TheMealDB: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("TheMealDB returned status %d", resp.StatusCode())
	}

	var result mealsResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse TheMealDB response: %w", err)
	}
	return result.Meals, nil
}

func toRecipe(m meal) common.Recipe {
	r := common.Recipe{
		ID:           "mealdb_" + m.field("idMeal"),
		Title:        m.field("strMeal"),
		Servings:     common.DefaultServings,
		Ingredients:  []common.Ingredient{},
		Instructions: []string{},
	}
	for i := 1; i <= maxMealIngredients; i++ {
		name := m.field(fmt.Sprintf("strIngredient%d", i))
		if name == "" {
			continue
		}
		line := strings.TrimSpace(m.field(fmt.Sprintf("strMeasure%d", i)) + " " + name)
		ing := recipe.ParseIngredientLine(line)
		if ing.Name == "" {
			ing.Name = name
		}
		r.Ingredients = append(r.Ingredients, ing)
		if len(r.MainIngredients) < 3 {
			r.MainIngredients = append(r.MainIngredients, strings.ToLower(name))
		}
	}
	for _, line := range strings.Split(m.field("strInstructions"), "\n") {
		if step := strings.TrimSpace(recipe.StripListMarker(line)); step != "" && !isStepHeader(step) {
			r.Instructions = append(r.Instructions, step)
		}
	}
	for _, tag := range []string{m.field("strCategory"), m.field("strArea")} {
		if tag != "" {
			r.DietaryTags = append(r.DietaryTags, strings.ToLower(tag))
		}
	}
	return r
}

// isStepHeader TheMealDB 的步驟常夾著 "STEP 1" 這類標題行
func isStepHeader(line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	return len(fields) <= 2 && len(fields) > 0 && fields[0] == "step"
}
