package recipe

import (
	"fmt"
	"strings"

	"recipe-assistant/internal/pkg/common"
)

// systemPrompt 食譜生成的系統提示
const systemPrompt = `You are a helpful culinary assistant. Your task is to generate a recipe based on the user's ingredients and dietary preferences.
Be creative and provide a complete recipe with a title, a list of ingredients, and step-by-step instructions.
Keep the recipe concise and easy to follow.`

// generationStop 模型輸出此標記後停止，避免附帶多份食譜
const generationStop = "### END"

func recipePrompt(req GenerateRequest) string {
	dietary := strings.TrimSpace(req.DietaryNeeds)
	if dietary == "" {
		dietary = "none"
	}
	servings := req.Servings
	if servings <= 0 {
		servings = common.DefaultServings
	}
	return fmt.Sprintf(`Based on the following information, generate a complete recipe.

Ingredients: %s
Dietary needs: %s
Servings: %d

Format:
# <Recipe title>
Serves: <number>

## Ingredients
- <amount> <unit> <ingredient>

## Instructions
1. <step>

Finish with the line "%s".
---
Recipe:
`, strings.Join(req.Ingredients, ", "), dietary, servings, generationStop)
}

func nutritionPrompt(r common.Recipe) string {
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteString("\n")
	for _, ing := range r.Ingredients {
		b.WriteString("- ")
		b.WriteString(DisplayIngredient(ing))
		b.WriteString("\n")
	}
	return fmt.Sprintf(`Based on the following recipe, provide a simplified nutritional breakdown per serving (recipe serves %d).
Estimate the calories, protein, fat, carbohydrates, fiber and sodium, one per line.
Do not provide a full nutritional label. Keep the response concise.

Recipe:
%s
---
Nutritional Breakdown:
`, r.Servings, b.String())
}
