package conversation

import (
	"fmt"
	"strings"

	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/pkg/common"
)

// RenderRecipe 將食譜渲染為對話中顯示的文字
func RenderRecipe(r *common.Recipe) string {
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Serves %d\n", r.Servings)
	if len(r.DietaryTags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(r.DietaryTags, ", "))
	}

	if len(r.Ingredients) > 0 {
		b.WriteString("\nIngredients:\n")
		for _, ing := range r.Ingredients {
			b.WriteString("- ")
			b.WriteString(recipe.DisplayIngredient(ing))
			b.WriteString("\n")
		}
	}
	if len(r.Instructions) > 0 {
		b.WriteString("\nInstructions:\n")
		for i, step := range r.Instructions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	if n := r.Nutrition; !n.Empty() {
		b.WriteString("\nNutrition (per serving):\n")
		if n.Calories != nil {
			fmt.Fprintf(&b, "- Calories: %.0f\n", *n.Calories)
		}
		for _, f := range []struct{ label, value string }{
			{"Protein", n.Protein}, {"Carbs", n.Carbs}, {"Fat", n.Fat},
			{"Fiber", n.Fiber}, {"Sodium", n.Sodium},
		} {
			if f.value != "" {
				fmt.Fprintf(&b, "- %s: %s\n", f.label, f.value)
			}
		}
		for _, note := range n.HealthNotes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderList 編號列表，編號從 1 開始，供後續以數字選取
func RenderList(header string, recipes []common.Recipe) string {
	var b strings.Builder
	b.WriteString(header)
	for i, r := range recipes {
		fmt.Fprintf(&b, "\n%d. %s", i+1, r.Title)
		if len(r.MainIngredients) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(r.MainIngredients, ", "))
		}
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
