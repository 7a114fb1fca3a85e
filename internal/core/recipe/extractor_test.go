package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-assistant/internal/pkg/common"
)

const scenarioB = "Ingredients:\n- 1 1/2 cups flour\n- 2 eggs\nInstructions:\n1. Mix\n2. Bake"

func TestExtractHeadedSections(t *testing.T) {
	r, outcome := ExtractDetailed(scenarioB, Hint{Servings: 4})

	assert.Equal(t, OutcomeStructured, outcome)
	require.Len(t, r.Ingredients, 2)

	flour := r.Ingredients[0]
	assert.Equal(t, "flour", flour.Name)
	require.NotNil(t, flour.Amount)
	assert.Equal(t, 1.5, *flour.Amount)
	assert.Equal(t, "cup", flour.Unit)
	assert.Equal(t, common.UnitKindVolume, flour.UnitKind)

	eggs := r.Ingredients[1]
	assert.Equal(t, "eggs", eggs.Name)
	require.NotNil(t, eggs.Amount)
	assert.Equal(t, 2.0, *eggs.Amount)
	assert.Empty(t, eggs.Unit)
	assert.Equal(t, common.UnitKindCount, eggs.UnitKind)

	assert.Equal(t, []string{"Mix", "Bake"}, r.Instructions)
	assert.Equal(t, 4, r.Servings)
	assert.NotEmpty(t, r.Title)
	assert.Equal(t, scenarioB, r.RawText)
}

func TestExtractMarkdownRecipe(t *testing.T) {
	raw := `Sure! Here's a recipe for you:

# Garlic Butter Chicken
Serves: 2

## Ingredients
- 2 chicken breasts (boneless)
- 3 cloves garlic, minced
- 2 tbsp butter
- Salt to taste

## Instructions
1. Season the chicken
   with salt.
2. Melt butter and cook garlic.

3. Add chicken and sear.

## Notes
Great with rice.`

	r := Extract(raw, Hint{Servings: 6})

	assert.Equal(t, "Garlic Butter Chicken", r.Title)
	assert.Equal(t, 2, r.Servings)
	require.Len(t, r.Ingredients, 4)
	assert.Equal(t, "chicken breasts", r.Ingredients[0].Name)
	assert.Equal(t, "boneless", r.Ingredients[0].Notes)
	assert.Equal(t, "garlic", r.Ingredients[1].Name)
	assert.Equal(t, "clove", r.Ingredients[1].Unit)
	assert.Equal(t, "minced", r.Ingredients[1].Notes)
	assert.Equal(t, "Salt", r.Ingredients[3].Name)
	assert.Nil(t, r.Ingredients[3].Amount)
	assert.Equal(t, "to taste", r.Ingredients[3].Notes)

	assert.Equal(t, []string{
		"Season the chicken with salt.",
		"Melt butter and cook garlic.",
		"Add chicken and sear.",
	}, r.Instructions)
}

func TestExtractTitleStrategies(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"markdown heading", "# Tomato Soup\nIngredients:\n- 2 tomatoes", "Tomato Soup"},
		{"recipe prefix", "Recipe: \"Lemon Pasta\"\nIngredients:\n- 200 g pasta", "Lemon Pasta"},
		{"bold label", "**Recipe:** Beef Stew\n\nIngredients:\n- 1 lb beef", "Beef Stew"},
		{"bold title", "**Pancakes**\nIngredients:\n- 1 cup flour", "Pancakes"},
		{"short first line", "Veggie Fried Rice\nIngredients:\n- 2 cups rice", "Veggie Fried Rice"},
		{"sentence first line is skipped", "This is a lovely dish that everyone enjoys.\nIngredients:\n- 2 cups rice", "Homemade Rice Recipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Extract(tt.raw, Hint{MainIngredients: []string{"rice"}})
			assert.Equal(t, tt.want, r.Title)
		})
	}
}

func TestExtractSynthesizesTitleFromHint(t *testing.T) {
	r := Extract("Mix everything and bake until golden.", Hint{MainIngredients: []string{"chicken thighs", "rice"}})
	assert.Equal(t, "Savory Chicken Thighs Dish", r.Title)

	r = Extract("", Hint{})
	assert.Equal(t, "Untitled Recipe", r.Title)
}

func TestExtractScansForIngredientsWithoutHeadings(t *testing.T) {
	raw := `Quick Omelette
You will want 3 eggs and some cheese.
2 eggs
1/4 cup milk
Whisk, then cook for 5 minutes.`

	r, outcome := ExtractDetailed(raw, Hint{})
	assert.Equal(t, OutcomeFallback, outcome)
	require.Len(t, r.Ingredients, 2)
	assert.Equal(t, "eggs", r.Ingredients[0].Name)
	assert.Equal(t, "milk", r.Ingredients[1].Name)
	assert.Equal(t, "cup", r.Ingredients[1].Unit)
}

func TestExtractNumberedStepsWithoutInstructionHeading(t *testing.T) {
	raw := `Ingredients:
- 1 cup oats
- 2 cups milk
1. Bring the milk to a simmer.
2. Stir in the oats and cook.`

	r := Extract(raw, Hint{})
	require.Len(t, r.Ingredients, 2)
	assert.Equal(t, []string{"Bring the milk to a simmer.", "Stir in the oats and cook."}, r.Instructions)
}

func TestExtractNeverFails(t *testing.T) {
	raw := "I'm sorry, I can't help with that."
	r, outcome := ExtractDetailed(raw, Hint{Servings: 3})

	assert.Equal(t, OutcomeEmpty, outcome)
	assert.True(t, r.IsEmpty())
	assert.NotNil(t, r.Ingredients)
	assert.NotEmpty(t, r.Title)
	assert.Equal(t, 3, r.Servings)
	assert.Equal(t, raw, r.RawText)
}

func TestExplicitServingsBeatsHint(t *testing.T) {
	r := Extract("Chili\nMakes 8 servings\nIngredients:\n- 1 lb beans", Hint{Servings: 2})
	assert.Equal(t, 8, r.Servings)

	r = Extract("Chili\nIngredients:\n- 1 lb beans", Hint{})
	assert.Equal(t, common.DefaultServings, r.Servings)
}

func TestDetectHeading(t *testing.T) {
	tests := []struct {
		line string
		kind sectionKind
		ok   bool
	}{
		{"Ingredients:", sectionIngredients, true},
		{"## Ingredients", sectionIngredients, true},
		{"**Instructions:**", sectionInstructions, true},
		{"Directions", sectionInstructions, true},
		{"Ingredients (for 4)", sectionIngredients, true},
		{"### Tips", sectionOther, true},
		{"Preparation is the key to success", sectionNone, false},
		{"Prep time: 10 minutes", sectionNone, false},
		{"- 2 eggs", sectionNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			kind, ok := detectHeading(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}
