package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIngredientLine(t *testing.T) {
	tests := []struct {
		line   string
		name   string
		amount *float64
		max    *float64
		unit   string
		notes  string
	}{
		{"- 1 1/2 cups all-purpose flour, sifted", "all-purpose flour", f(1.5), nil, "cup", "sifted"},
		{"* 2-3 tbsp olive oil", "olive oil", f(2), f(3), "tbsp", ""},
		{"1 (14 oz) can diced tomatoes", "can diced tomatoes", f(1), nil, "", "14 oz"},
		{"2 cups of milk", "milk", f(2), nil, "cup", ""},
		{"½ tsp salt", "salt", f(0.5), nil, "tsp", ""},
		{"a pinch of nutmeg", "nutmeg", nil, nil, "", "a pinch"},
		{"Black pepper to taste", "Black pepper", nil, nil, "", "to taste"},
		{"**200 g** spaghetti", "spaghetti", f(200), nil, "g", ""},
		{"2", "2", nil, nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ing := ParseIngredientLine(tt.line)
			assert.Equal(t, tt.name, ing.Name)
			assert.Equal(t, tt.unit, ing.Unit)
			assert.Equal(t, tt.notes, ing.Notes)
			if tt.amount == nil {
				assert.Nil(t, ing.Amount)
			} else {
				require.NotNil(t, ing.Amount)
				assert.InDelta(t, *tt.amount, *ing.Amount, 1e-9)
			}
			if tt.max == nil {
				assert.Nil(t, ing.AmountMax)
			} else {
				require.NotNil(t, ing.AmountMax)
				assert.InDelta(t, *tt.max, *ing.AmountMax, 1e-9)
			}
		})
	}
}

func TestDisplayIngredient(t *testing.T) {
	assert.Equal(t, "2 1/4 cups flour (sifted)", DisplayIngredient(ParseIngredientLine("2.25 cups flour, sifted")))
	assert.Equal(t, "3 eggs", DisplayIngredient(ParseIngredientLine("3 eggs")))
	assert.Equal(t, "salt (to taste)", DisplayIngredient(ParseIngredientLine("salt to taste")))
}

func TestParseNutrition(t *testing.T) {
	text := `Nutritional Breakdown (per serving):
- Calories: 450 kcal
- Protein: 32g
- Carbohydrates: 40 grams
- Fat: 18g
- Saturated fat: 6g
- Sodium: 600mg
Rich in vitamin C and a good source of fiber.`

	n := ParseNutrition(text)
	require.NotNil(t, n)
	require.NotNil(t, n.Calories)
	assert.Equal(t, 450.0, *n.Calories)
	assert.Equal(t, "32g", n.Protein)
	assert.Equal(t, "40g", n.Carbs)
	assert.Equal(t, "18g", n.Fat)
	assert.Equal(t, "600mg", n.Sodium)
	assert.Equal(t, []string{"Rich in vitamin C and a good source of fiber."}, n.HealthNotes)

	assert.Nil(t, ParseNutrition("I cannot estimate that."))
}

func TestDietaryTags(t *testing.T) {
	assert.Equal(t, []string{"vegetarian", "gluten-free"}, DietaryTags("Vegetarian, no gluten please"))
	assert.Equal(t, []string{"low-carb"}, DietaryTags("keto"))
	assert.Nil(t, DietaryTags("none"))
	assert.Nil(t, DietaryTags(""))
}

func f(v float64) *float64 { return &v }
