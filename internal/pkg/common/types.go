package common

import "time"

// DefaultServings 未標示份量且呼叫端沒有提示時使用的預設份量
const DefaultServings = 4

// UnitKind 單位類別（計數、容量、重量）
type UnitKind string

const (
	UnitKindNone   UnitKind = ""
	UnitKindCount  UnitKind = "count"
	UnitKindVolume UnitKind = "volume"
	UnitKindWeight UnitKind = "weight"
)

// Ingredient 食材
type Ingredient struct {
	Name      string   `json:"name"`
	Amount    *float64 `json:"amount"`               // 無法解析時為 null
	AmountMax *float64 `json:"amount_max,omitempty"` // 範圍數量（如 2-3）的上限
	Unit      string   `json:"unit,omitempty"`
	UnitKind  UnitKind `json:"unit_kind,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// NutritionInfo 每份營養資訊
type NutritionInfo struct {
	Calories    *float64 `json:"calories,omitempty"`
	Protein     string   `json:"protein,omitempty"`
	Carbs       string   `json:"carbs,omitempty"`
	Fat         string   `json:"fat,omitempty"`
	Fiber       string   `json:"fiber,omitempty"`
	Sodium      string   `json:"sodium,omitempty"`
	HealthNotes []string `json:"health_notes,omitempty"`
}

// Empty 是否沒有任何營養欄位
func (n *NutritionInfo) Empty() bool {
	if n == nil {
		return true
	}
	return n.Calories == nil && n.Protein == "" && n.Carbs == "" && n.Fat == "" &&
		n.Fiber == "" && n.Sodium == "" && len(n.HealthNotes) == 0
}

// Recipe 食譜
type Recipe struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Servings        int            `json:"servings"`
	Ingredients     []Ingredient   `json:"ingredients"`
	Instructions    []string       `json:"instructions"`
	MainIngredients []string       `json:"main_ingredients,omitempty"`
	DietaryTags     []string       `json:"dietary_tags,omitempty"`
	Nutrition       *NutritionInfo `json:"nutrition,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	RawText         string         `json:"raw_text,omitempty"`
}

// IsEmpty 食材與步驟皆為空（抽取失敗）
func (r *Recipe) IsEmpty() bool {
	return len(r.Ingredients) == 0 && len(r.Instructions) == 0
}

// IngredientNames 回傳所有食材名稱
func (r *Recipe) IngredientNames() []string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, ing.Name)
	}
	return names
}

// Clone 深拷貝，避免呼叫端改動共享的快照
func (r Recipe) Clone() Recipe {
	out := r
	out.Ingredients = make([]Ingredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		out.Ingredients[i] = ing
		if ing.Amount != nil {
			v := *ing.Amount
			out.Ingredients[i].Amount = &v
		}
		if ing.AmountMax != nil {
			v := *ing.AmountMax
			out.Ingredients[i].AmountMax = &v
		}
	}
	out.Instructions = append([]string(nil), r.Instructions...)
	out.MainIngredients = append([]string(nil), r.MainIngredients...)
	out.DietaryTags = append([]string(nil), r.DietaryTags...)
	if r.Nutrition != nil {
		n := *r.Nutrition
		n.HealthNotes = append([]string(nil), r.Nutrition.HealthNotes...)
		out.Nutrition = &n
	}
	return out
}

// RecipeSummary 列表用的精簡食譜資訊
type RecipeSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Servings        int       `json:"servings"`
	MainIngredients []string  `json:"main_ingredients,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Score           float64   `json:"score,omitempty"`
}

// Summarize 建立列表摘要
func Summarize(r *Recipe) RecipeSummary {
	return RecipeSummary{
		ID:              r.ID,
		Title:           r.Title,
		Servings:        r.Servings,
		MainIngredients: r.MainIngredients,
		CreatedAt:       r.CreatedAt,
	}
}

// FloatPtr 取得 float64 指標
func FloatPtr(v float64) *float64 {
	return &v
}
