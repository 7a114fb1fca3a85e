package recipe

import (
	"fmt"
	"math"

	"recipe-assistant/internal/core/quantity"
	"recipe-assistant/internal/pkg/common"
)

// Scale 將食譜調整為指定份量，回傳新的食譜（原食譜不變）。
// 沒有數量的食材（如 "salt to taste"）保持原樣。
func Scale(r common.Recipe, servings int) (common.Recipe, error) {
	original := r.Servings
	if original < 1 {
		original = common.DefaultServings
	}
	factor, err := quantity.ScaleFactor(original, servings)
	if err != nil {
		return r, err
	}

	out := r.Clone()
	out.Servings = servings
	for i, ing := range out.Ingredients {
		q, ok := quantity.FromIngredient(ing)
		if !ok {
			continue
		}
		scaled, err := quantity.Scale(q, factor)
		if err != nil {
			return r, err
		}
		if factor > 1 {
			scaled = quantity.Simplify(scaled)
		}
		scaled.ApplyTo(&out.Ingredients[i])
	}
	return out, nil
}

// ScaleBy 依倍數調整（double / halve），份量四捨五入為整數後再等比例縮放食材
func ScaleBy(r common.Recipe, factor float64) (common.Recipe, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return r, common.WrapError(common.ErrInvalidScaleTarget, fmt.Errorf("factor %v", factor))
	}
	original := r.Servings
	if original < 1 {
		original = common.DefaultServings
	}
	target := int(math.Round(float64(original) * factor))
	if target < 1 {
		return r, common.WrapError(common.ErrInvalidScaleTarget,
			fmt.Errorf("%d servings x %v rounds to %d", original, factor, target))
	}
	return Scale(r, target)
}
