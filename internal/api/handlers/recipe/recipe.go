// Package recipe 食譜相關 HTTP 處理器：生成、抽取、縮放、查詢與統計
package recipe

import (
	"net/http"
	"strconv"
	"strings"

	"recipe-assistant/internal/api/handlers"
	recipeService "recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/core/store"
	"recipe-assistant/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// ExtractRequest 將一段食譜文字轉為結構化食譜
type ExtractRequest struct {
	Text            string   `json:"text" binding:"required"`
	Servings        int      `json:"servings" binding:"omitempty,min=1"`
	MainIngredients []string `json:"main_ingredients,omitempty"`
	Save            bool     `json:"save"`
}

// ScaleRequest 縮放已保存或請求中附帶的食譜，servings 與 factor 擇一
type ScaleRequest struct {
	RecipeID string         `json:"recipe_id"`
	Recipe   *common.Recipe `json:"recipe"`
	Servings int            `json:"servings"`
	Factor   float64        `json:"factor"`
}

// RecipeResponse 單一食譜回應，Text 為渲染後的顯示文字
type RecipeResponse struct {
	Recipe  common.Recipe `json:"recipe"`
	Text    string        `json:"text"`
	Outcome string        `json:"outcome,omitempty"`
	Saved   bool          `json:"saved"`
}

// ListResponse 食譜列表回應
type ListResponse struct {
	Recipes []common.RecipeSummary `json:"recipes"`
	Total   int                    `json:"total"`
}

// Handler 食譜處理程序
type Handler struct {
	service *recipeService.Service
	store   *store.Store
}

// NewHandler 創建新的食譜處理程序
func NewHandler(service *recipeService.Service, st *store.Store) *Handler {
	return &Handler{service: service, store: st}
}

// Generate 根據食材生成食譜並保存
func (h *Handler) Generate(c *gin.Context) {
	var req recipeService.GenerateRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	common.LogInfo("開始處理食譜生成請求",
		zap.String("request_id", requestid.Get(c)),
		zap.Strings("ingredients", req.Ingredients),
		zap.String("dietary_needs", req.DietaryNeeds),
	)

	r, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	if r.IsEmpty() {
		handlers.Error(c, common.WrapErrorMessage(common.ErrParseFailure, "the model's answer did not contain a recipe", nil))
		return
	}

	saved, err := h.store.Add(c.Request.Context(), r)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, RecipeResponse{Recipe: saved, Text: render(&saved), Saved: true})
}

// Extract 抽取使用者貼上的食譜文字，可選擇保存
func (h *Handler) Extract(c *gin.Context) {
	var req ExtractRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	r, outcome := recipeService.ExtractDetailed(req.Text, recipeService.Hint{
		Servings:        req.Servings,
		MainIngredients: req.MainIngredients,
	})
	if !req.Save {
		c.JSON(http.StatusOK, RecipeResponse{Recipe: r, Text: render(&r), Outcome: string(outcome)})
		return
	}

	saved, err := h.store.Add(c.Request.Context(), r)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, RecipeResponse{Recipe: saved, Text: render(&saved), Outcome: string(outcome), Saved: true})
}

// Scale 縮放食譜，結果不會保存
func (h *Handler) Scale(c *gin.Context) {
	var req ScaleRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	var base common.Recipe
	switch {
	case req.RecipeID != "":
		r, err := h.store.Get(req.RecipeID)
		if err != nil {
			handlers.Error(c, err)
			return
		}
		base = r
	case req.Recipe != nil:
		base = *req.Recipe
	default:
		handlers.Error(c, common.WrapErrorMessage(common.ErrInvalidRequest, "recipe_id or recipe is required", nil))
		return
	}

	var (
		scaled common.Recipe
		err    error
	)
	switch {
	case req.Servings != 0:
		scaled, err = recipeService.Scale(base, req.Servings)
	case req.Factor != 0:
		scaled, err = recipeService.ScaleBy(base, req.Factor)
	default:
		err = common.WrapErrorMessage(common.ErrInvalidScaleTarget, "servings or factor is required", nil)
	}
	if err != nil {
		handlers.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, RecipeResponse{Recipe: scaled, Text: render(&scaled)})
}

// List 最近建立的食譜
func (h *Handler) List(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultListLimit)
	if !ok {
		return
	}
	recipes, err := h.store.Recent(min(limit, maxListLimit))
	if err != nil {
		handlers.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Recipes: summarize(recipes), Total: h.store.Len()})
}

// Search 語意搜尋已保存的食譜
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		handlers.Error(c, common.WrapErrorMessage(common.ErrInvalidRequest, "query parameter q is required", nil))
		return
	}
	k, ok := intQuery(c, "k", defaultListLimit)
	if !ok {
		return
	}
	matches, err := h.store.Search(c.Request.Context(), query, min(k, maxListLimit))
	if err != nil {
		handlers.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"mode":    h.store.IndexMode(),
		"results": matchSummaries(matches),
	})
}

// Get 取得單一食譜
func (h *Handler) Get(c *gin.Context) {
	r, err := h.store.Get(c.Param("id"))
	if err != nil {
		handlers.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, RecipeResponse{Recipe: r, Text: render(&r), Saved: true})
}

// Similar 與指定食譜相似的食譜
func (h *Handler) Similar(c *gin.Context) {
	k, ok := intQuery(c, "k", 5)
	if !ok {
		return
	}
	matches, err := h.store.Similar(c.Request.Context(), c.Param("id"), min(k, maxListLimit))
	if err != nil {
		handlers.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe_id": c.Param("id"), "results": matchSummaries(matches)})
}

// Delete 刪除食譜
func (h *Handler) Delete(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), c.Param("id")); err != nil {
		handlers.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Nutrition 請模型估算營養資訊並保存到食譜上
func (h *Handler) Nutrition(c *gin.Context) {
	r, err := h.store.Get(c.Param("id"))
	if err != nil {
		handlers.Error(c, err)
		return
	}
	withNutrition, err := h.service.AddNutrition(c.Request.Context(), r)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	saved, err := h.store.Update(c.Request.Context(), withNutrition)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, RecipeResponse{Recipe: saved, Text: render(&saved), Saved: true})
}

func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		handlers.Error(c, common.WrapErrorMessage(common.ErrInvalidRequest, key+" must be a positive integer", err))
		return 0, false
	}
	return n, true
}

func summarize(recipes []common.Recipe) []common.RecipeSummary {
	out := make([]common.RecipeSummary, len(recipes))
	for i := range recipes {
		out[i] = common.Summarize(&recipes[i])
	}
	return out
}

func matchSummaries(matches []store.Match) []common.RecipeSummary {
	out := make([]common.RecipeSummary, len(matches))
	for i := range matches {
		out[i] = common.Summarize(&matches[i].Recipe)
		out[i].Score = matches[i].Score
	}
	return out
}
