package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipe-assistant/internal/core/ai"
	"recipe-assistant/internal/metrics"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// GenerateRequest 食譜生成請求
type GenerateRequest struct {
	Ingredients  []string `json:"ingredients" binding:"required,min=1"`
	DietaryNeeds string   `json:"dietary_needs"`
	Servings     int      `json:"servings" binding:"omitempty,min=1"`
}

// Service 食譜生成服務：prompt → 模型 → 抽取
type Service struct {
	generator ai.TextGenerator
	metrics   *metrics.Metrics
}

// NewService 創建食譜服務
func NewService(generator ai.TextGenerator, m *metrics.Metrics) *Service {
	return &Service{
		generator: generator,
		metrics:   m,
	}
}

// Generate 根據食材和飲食需求生成食譜。
// 模型失敗時回傳 ErrModelUnavailable；抽取結果可能為空，由呼叫端決定如何呈現。
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (common.Recipe, error) {
	req.Ingredients = cleanList(req.Ingredients)
	if len(req.Ingredients) == 0 {
		return common.Recipe{}, common.WrapErrorMessage(common.ErrInvalidRequest, "at least one ingredient is required", nil)
	}
	if req.Servings < 0 {
		return common.Recipe{}, common.WrapError(common.ErrInvalidScaleTarget, fmt.Errorf("got %d", req.Servings))
	}

	text, err := s.generator.Generate(ctx, ai.Prompt{
		System: systemPrompt,
		User:   recipePrompt(req),
		Stop:   []string{generationStop},
	})
	if err != nil {
		return common.Recipe{}, asModelError(err)
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), generationStop))

	r, outcome := ExtractDetailed(text, Hint{Servings: req.Servings, MainIngredients: req.Ingredients})
	r.DietaryTags = DietaryTags(req.DietaryNeeds)
	s.metrics.Extraction(string(outcome))

	common.LogInfo("食譜生成完成",
		zap.String("title", r.Title),
		zap.Int("ingredients", len(r.Ingredients)),
		zap.Int("steps", len(r.Instructions)),
		zap.String("outcome", string(outcome)),
		zap.String("raw_text", text),
	)
	return r, nil
}

// AddNutrition 請模型估算營養資訊並附加到食譜上
func (s *Service) AddNutrition(ctx context.Context, r common.Recipe) (common.Recipe, error) {
	text, err := s.generator.Generate(ctx, ai.Prompt{User: nutritionPrompt(r)})
	if err != nil {
		return r, asModelError(err)
	}
	n := ParseNutrition(text)
	if n == nil {
		return r, common.WrapErrorMessage(common.ErrParseFailure, "could not read a nutrition breakdown from the model", nil)
	}
	out := r.Clone()
	out.Nutrition = n
	return out, nil
}

func asModelError(err error) error {
	if errors.Is(err, common.ErrModelUnavailable) || errors.Is(err, common.ErrTooManyRequests) {
		return err
	}
	return common.WrapError(common.ErrModelUnavailable, err)
}
