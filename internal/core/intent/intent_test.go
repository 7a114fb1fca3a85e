package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-assistant/internal/core/ai"
	"recipe-assistant/internal/pkg/common"
)

func TestClassifyRules(t *testing.T) {
	withList := Context{LastListLen: 3}
	focused := Context{HasFocusedRecipe: true, FocusedTitle: "Chicken Soup"}

	tests := []struct {
		utterance string
		ctx       Context
		kind      Kind
		params    Params
	}{
		{"3", withList, KindNumberedReference, Params{Index: 3}},
		{"#2", withList, KindNumberedReference, Params{Index: 2}},
		{"show me number 1", withList, KindNumberedReference, Params{Index: 1}},
		{"the second one", withList, KindNumberedReference, Params{Index: 2}},
		{"the last one", withList, KindNumberedReference, Params{Index: 3}},
		{"What do I cook most often?", Context{}, KindAnalyticsFrequent, Params{}},
		{"what's my go-to recipe", Context{}, KindAnalyticsFrequent, Params{}},
		{"How often do I use chicken?", Context{}, KindAnalyticsCount, Params{Ingredient: "chicken"}},
		{"how many recipes with ground beef do I have", Context{}, KindAnalyticsCount, Params{Ingredient: "ground beef"}},
		{"how many salmon recipes do I have", Context{}, KindAnalyticsCount, Params{Ingredient: "salmon"}},
		{"show me the previous chicken recipe", Context{}, KindGetDetails, Params{RecipeName: "chicken", Historical: true}},
		{"show me last recipe", Context{}, KindGetDetails, Params{Historical: true}},
		{"scale it to 6 servings", focused, KindScaleRecipe, Params{Servings: 6, HasServings: true}},
		{"make it for 8 people", focused, KindScaleRecipe, Params{Servings: 8, HasServings: true}},
		{"scale it to -2 servings", focused, KindScaleRecipe, Params{Servings: -2, HasServings: true}},
		{"scale it to 0 servings", focused, KindScaleRecipe, Params{HasServings: true}},
		{"adjust it for 2-3 people", focused, KindScaleRecipe, Params{Servings: 2, HasServings: true}},
		{"scale it", focused, KindScaleRecipe, Params{}},
		{"double the recipe", focused, KindScaleRecipe, Params{Factor: 2}},
		{"halve it", focused, KindScaleRecipe, Params{Factor: 0.5}},
		{"Create a recipe with chicken, rice and broccoli", Context{}, KindCreateRecipe, Params{Ingredients: []string{"chicken", "rice", "broccoli"}}},
		{"make me a vegetarian pasta dish for 2 people", Context{}, KindCreateRecipe, Params{Ingredients: []string{"pasta"}, DietaryNeeds: "vegetarian", Servings: 2}},
		{"what can I make with eggs and spinach?", Context{}, KindCreateRecipe, Params{Ingredients: []string{"eggs", "spinach"}}},
		{"give me a salmon recipe", Context{}, KindCreateRecipe, Params{Ingredients: []string{"salmon"}}},
		{"show me my recent recipes", Context{}, KindGetRecent, Params{Limit: 5}},
		{"list the last 3 recipes", Context{}, KindGetRecent, Params{Limit: 3}},
		{"what are the steps", focused, KindGetDetails, Params{}},
		{"show me the recipe for beef stew", Context{}, KindGetDetails, Params{RecipeName: "beef stew"}},
		{"find chicken recipes", Context{}, KindSearch, Params{Query: "chicken"}},
		{"do I have any pasta recipes?", Context{}, KindSearch, Params{Query: "pasta"}},
		{"salmon", Context{}, KindSearch, Params{Query: "salmon"}},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			res, ok := ClassifyRules(tt.utterance, tt.ctx)
			require.True(t, ok)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.params, res.Params)
			assert.Equal(t, SourceRule, res.Source)
		})
	}
}

func TestBareNumberAlwaysNumberedReferenceWithList(t *testing.T) {
	for _, ctx := range []Context{
		{LastListLen: 3},
		{LastListLen: 10, HasFocusedRecipe: true, FocusedTitle: "Beef Stew"},
	} {
		res, ok := ClassifyRules("3", ctx)
		require.True(t, ok)
		assert.Equal(t, KindNumberedReference, res.Kind)
		assert.Equal(t, 3, res.Params.Index)
	}

	// 沒有列表時數字不是列表編號
	res, ok := ClassifyRules("3", Context{})
	if ok {
		assert.NotEqual(t, KindNumberedReference, res.Kind)
	}
}

func TestRulesAreDeterministic(t *testing.T) {
	ctx := Context{LastListLen: 2}
	first, ok := ClassifyRules("find something with mushrooms", ctx)
	require.True(t, ok)
	for range 10 {
		again, _ := ClassifyRules("find something with mushrooms", ctx)
		assert.Equal(t, first, again)
	}
}

func TestHelpRequests(t *testing.T) {
	for _, u := range []string{"help", "what can you do?", "", "Hi!"} {
		res, ok := ClassifyRules(u, Context{})
		require.True(t, ok, u)
		assert.True(t, res.Help, u)
		assert.Equal(t, SourceUnclassified, res.Source)
	}
}

func TestKindFromString(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := KindFromString(k.String())
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := KindFromString("order_pizza")
	assert.False(t, ok)
	_, ok = KindFromString("unknown")
	assert.False(t, ok)
}

func TestKindTextRoundTrip(t *testing.T) {
	text, err := KindScaleRecipe.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "scale_recipe", string(text))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("scale_recipe")))
	assert.Equal(t, KindScaleRecipe, k)
	require.NoError(t, k.UnmarshalText([]byte("order_pizza")))
	assert.Equal(t, KindUnknown, k)
}

func modelReturning(text string, err error) ai.TextGenerator {
	return ai.GeneratorFunc(func(ctx context.Context, p ai.Prompt) (string, error) {
		return text, err
	})
}

func TestClassifierUsesModelWhenNoRuleMatches(t *testing.T) {
	var prompt ai.Prompt
	gen := ai.GeneratorFunc(func(ctx context.Context, p ai.Prompt) (string, error) {
		prompt = p
		return `{"intent": "create_recipe", "parameters": {"ingredients": ["leftover turkey"], "servings": 3}, "confidence": 0.82, "reasoning": "wants a dish"}`, nil
	})
	c := NewClassifier(gen, nil)

	res, err := c.Classify(context.Background(), "I'm hungry, surprise me with leftovers from thanksgiving dinner", Context{LastListLen: 4})
	require.NoError(t, err)
	assert.Equal(t, KindCreateRecipe, res.Kind)
	assert.Equal(t, SourceModel, res.Source)
	assert.Equal(t, []string{"leftover turkey"}, res.Params.Ingredients)
	assert.Equal(t, 3, res.Params.Servings)
	assert.InDelta(t, 0.82, res.Confidence, 1e-9)
	assert.Contains(t, prompt.User, "a numbered list of 4 recipes was just shown")
}

func TestClassifierRuleTierSkipsModel(t *testing.T) {
	gen := ai.GeneratorFunc(func(ctx context.Context, p ai.Prompt) (string, error) {
		t.Fatal("model must not be called when a rule matches")
		return "", nil
	})
	res, err := NewClassifier(gen, nil).Classify(context.Background(), "how often do I use chicken?", Context{})
	require.NoError(t, err)
	assert.Equal(t, KindAnalyticsCount, res.Kind)
	assert.Equal(t, "chicken", res.Params.Ingredient)
}

func TestModelResponseRepair(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind Kind
		p    Params
	}{
		{"fenced", "Here you go:\n```json\n{\"intent\": \"search\", \"parameters\": {\"query\": \"tacos\"}}\n```", KindSearch, Params{Query: "tacos"}},
		{"unquoted keys", "{intent: \"get_recent\", parameters: {limit: 3,},}", KindGetRecent, Params{Limit: 3}},
		{"single quotes", "{'intent': 'analytics_count', 'parameters': {'ingredient': 'tofu'}}", KindAnalyticsCount, Params{Ingredient: "tofu"}},
		{"field extraction", "intent: numbered_reference, index: 2, confidence: 0.7 (the user said two)", KindNumberedReference, Params{Index: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(modelReturning(tt.text, nil), nil)
			res, err := c.Classify(context.Background(), "zzz qqq", Context{})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.p, res.Params)
		})
	}
}

func TestClassificationFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  ai.TextGenerator
	}{
		{"no model", nil},
		{"model error", modelReturning("", common.ErrModelUnavailable)},
		{"unknown label", modelReturning(`{"intent": "order_pizza"}`, nil)},
		{"garbage", modelReturning("I am not sure what you mean.", nil)},
		{"missing index", modelReturning(`{"intent": "numbered_reference", "parameters": {}}`, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewClassifier(tt.gen, nil).Classify(context.Background(), "zzz qqq", Context{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrClassificationFailure))
			assert.Equal(t, SourceUnclassified, res.Source)
			assert.Equal(t, KindUnknown, res.Kind)
		})
	}
}
