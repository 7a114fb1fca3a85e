package recipe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-assistant/internal/core/ai"
	"recipe-assistant/internal/metrics"
	"recipe-assistant/internal/pkg/common"
)

const generatedRecipe = `# Lemon Chicken
Serves: 2

## Ingredients
- 2 chicken breasts
- 1 lemon, juiced
- 1 tbsp olive oil

## Instructions
1. Marinate the chicken in lemon juice.
2. Pan-fry in olive oil until cooked through.
### END`

func TestServiceGenerate(t *testing.T) {
	var got ai.Prompt
	svc := NewService(ai.GeneratorFunc(func(ctx context.Context, p ai.Prompt) (string, error) {
		got = p
		return generatedRecipe, nil
	}), metrics.New())

	r, err := svc.Generate(context.Background(), GenerateRequest{
		Ingredients:  []string{" chicken ", "lemon", ""},
		DietaryNeeds: "gluten-free",
		Servings:     2,
	})
	require.NoError(t, err)

	assert.Contains(t, got.User, "Ingredients: chicken, lemon")
	assert.Contains(t, got.User, "Dietary needs: gluten-free")
	assert.Equal(t, []string{generationStop}, got.Stop)
	assert.NotEmpty(t, got.System)

	assert.Equal(t, "Lemon Chicken", r.Title)
	assert.Equal(t, 2, r.Servings)
	assert.Len(t, r.Ingredients, 3)
	assert.Len(t, r.Instructions, 2)
	assert.Equal(t, []string{"gluten-free"}, r.DietaryTags)
	assert.False(t, strings.Contains(r.RawText, generationStop))
}

func TestServiceGenerateValidation(t *testing.T) {
	called := false
	svc := NewService(ai.GeneratorFunc(func(ctx context.Context, p ai.Prompt) (string, error) {
		called = true
		return "", nil
	}), nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{" "}})
	assert.True(t, errors.Is(err, common.ErrInvalidRequest))

	_, err = svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{"rice"}, Servings: -1})
	assert.True(t, errors.Is(err, common.ErrInvalidScaleTarget))
	assert.False(t, called)
}

func TestServiceGenerateModelFailure(t *testing.T) {
	svc := NewService(ai.GeneratorFunc(func(ctx context.Context, p ai.Prompt) (string, error) {
		return "", errors.New("connection refused")
	}), nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{Ingredients: []string{"rice"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrModelUnavailable))

	busy := NewService(ai.GeneratorFunc(func(ctx context.Context, p ai.Prompt) (string, error) {
		return "", common.ErrTooManyRequests
	}), nil)
	_, err = busy.Generate(context.Background(), GenerateRequest{Ingredients: []string{"rice"}})
	assert.True(t, errors.Is(err, common.ErrTooManyRequests))
	assert.False(t, errors.Is(err, common.ErrModelUnavailable))
}

func TestServiceAddNutrition(t *testing.T) {
	base := Extract(generatedRecipe, Hint{})

	svc := NewService(ai.GeneratorFunc(func(ctx context.Context, p ai.Prompt) (string, error) {
		assert.Contains(t, p.User, "Lemon Chicken")
		assert.Contains(t, p.User, "2 chicken breasts")
		return "Calories: 320\nProtein: 40g\nFat: 12g", nil
	}), nil)

	out, err := svc.AddNutrition(context.Background(), base)
	require.NoError(t, err)
	require.NotNil(t, out.Nutrition)
	assert.Equal(t, 320.0, *out.Nutrition.Calories)
	assert.Equal(t, "40g", out.Nutrition.Protein)
	assert.Nil(t, base.Nutrition)

	empty := NewService(ai.GeneratorFunc(func(ctx context.Context, p ai.Prompt) (string, error) {
		return "Sorry, I can't estimate that.", nil
	}), nil)
	_, err = empty.AddNutrition(context.Background(), base)
	assert.True(t, errors.Is(err, common.ErrParseFailure))
}
