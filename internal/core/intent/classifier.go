package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"recipe-assistant/internal/core/ai"
	"recipe-assistant/internal/metrics"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// Classifier 兩層意圖分類器
type Classifier struct {
	generator ai.TextGenerator
	metrics   *metrics.Metrics
}

// NewClassifier 創建分類器，generator 為 nil 時只使用規則層
func NewClassifier(generator ai.TextGenerator, m *metrics.Metrics) *Classifier {
	return &Classifier{generator: generator, metrics: m}
}

// Classify 先跑規則層，沒有命中才詢問模型。
// 兩層都無法給出合法意圖時回傳 Source=unclassified 與 ErrClassificationFailure。
func (c *Classifier) Classify(ctx context.Context, utterance string, cc Context) (Result, error) {
	if res, ok := ClassifyRules(utterance, cc); ok {
		c.metrics.IntentClassified(res.Kind.String(), string(res.Source))
		common.LogDebug("規則層分類命中",
			zap.String("intent", res.Kind.String()),
			zap.String("reasoning", res.Reasoning),
		)
		return res, nil
	}

	res, err := c.classifyWithModel(ctx, utterance, cc)
	if err != nil {
		c.metrics.IntentClassified(KindUnknown.String(), string(SourceUnclassified))
		common.LogWarn("意圖分類失敗", zap.String("utterance", utterance), zap.Error(err))
		return unclassified(err.Error()), err
	}
	c.metrics.IntentClassified(res.Kind.String(), string(res.Source))
	common.LogInfo("模型分類完成",
		zap.String("intent", res.Kind.String()),
		zap.Float64("confidence", res.Confidence),
	)
	return res, nil
}

func (c *Classifier) classifyWithModel(ctx context.Context, utterance string, cc Context) (Result, error) {
	if c.generator == nil {
		return Result{}, common.WrapErrorMessage(common.ErrClassificationFailure, "no rule matched and no model is configured", nil)
	}

	text, err := c.generator.Generate(ctx, ai.Prompt{
		System: classifierSystemPrompt,
		User:   classificationPrompt(utterance, cc),
	})
	if err != nil {
		return Result{}, common.WrapError(common.ErrClassificationFailure, err)
	}

	answer, ok := parseModelAnswer(text)
	if !ok {
		return Result{}, common.WrapErrorMessage(common.ErrClassificationFailure, "could not read the model's classification", nil)
	}
	return answer.toResult()
}

const classifierSystemPrompt = `You are an intent classifier for a recipe assistant. You answer with a single JSON object and nothing else.`

func classificationPrompt(utterance string, cc Context) string {
	return fmt.Sprintf(`Classify the user's message into exactly one of these intents:

- create_recipe: the user wants a new recipe. parameters: ingredients (list), dietary_needs, servings
- search: find saved recipes. parameters: query
- get_recent: list recently saved recipes. parameters: limit
- get_details: show a saved recipe. parameters: recipe_name
- scale_recipe: change the servings of the current recipe. parameters: servings or factor
- analytics_frequent: which recipe the user makes most often. no parameters
- analytics_count: how many recipes use an ingredient. parameters: ingredient
- numbered_reference: the user picks an entry from the list on screen. parameters: index

Context: %s

Message: %q

Answer with JSON only:
{"intent": "<one label from the list>", "parameters": {}, "confidence": 0.0, "reasoning": "<short reason>"}`, cc.summary(), utterance)
}

// modelAnswer 模型回傳的分類
type modelAnswer struct {
	Intent     string                 `json:"intent"`
	Parameters map[string]interface{} `json:"parameters"`
	Confidence interface{}            `json:"confidence"`
	Reasoning  string                 `json:"reasoning"`
}

// parseStrategies 依序嘗試的解析方式，模型輸出常帶有說明文字或不合法的 JSON
var parseStrategies = []func(string) (modelAnswer, bool){
	parseDirect,
	parseEmbedded,
	parseRepaired,
	parseFields,
}

func parseModelAnswer(text string) (modelAnswer, bool) {
	for _, strategy := range parseStrategies {
		if a, ok := strategy(text); ok && a.Intent != "" {
			return a, true
		}
	}
	return modelAnswer{}, false
}

func parseDirect(text string) (modelAnswer, bool) {
	var a modelAnswer
	if err := common.ParseJSON(strings.TrimSpace(text), &a); err != nil {
		return modelAnswer{}, false
	}
	return a, true
}

func parseEmbedded(text string) (modelAnswer, bool) {
	obj, ok := common.ExtractJSONObject(text)
	if !ok {
		return modelAnswer{}, false
	}
	return parseDirect(obj)
}

func parseRepaired(text string) (modelAnswer, bool) {
	obj, ok := common.ExtractJSONObject(text)
	if !ok {
		return modelAnswer{}, false
	}
	obj = strings.ReplaceAll(obj, "'", `"`)
	return parseDirect(common.RemoveTrailingCommas(common.QuoteJSONKeys(obj)))
}

var (
	fieldIntentRe      = regexp.MustCompile(`(?i)["']?intent["']?\s*[:=]\s*["']?([a-z_]+)`)
	fieldConfidenceRe  = regexp.MustCompile(`(?i)["']?confidence["']?\s*[:=]\s*["']?([0-9.]+)`)
	fieldIngredientsRe = regexp.MustCompile(`(?i)["']?ingredients["']?\s*:\s*\[([^\]]*)\]`)
	fieldStringRes     = fieldPatterns(`(?i)["']?%s["']?\s*:\s*["']([^"']+)["']`, "ingredient", "query", "recipe_name", "dietary_needs")
	fieldNumberRes     = fieldPatterns(`(?i)["']?%s["']?\s*:\s*["']?([0-9.]+)`, "servings", "factor", "index", "limit")
)

type fieldPattern struct {
	key string
	re  *regexp.Regexp
}

func fieldPatterns(format string, keys ...string) []fieldPattern {
	out := make([]fieldPattern, len(keys))
	for i, key := range keys {
		out[i] = fieldPattern{key: key, re: regexp.MustCompile(fmt.Sprintf(format, key))}
	}
	return out
}

// parseFields 最後手段：直接用正規表示式取出欄位
func parseFields(text string) (modelAnswer, bool) {
	m := fieldIntentRe.FindStringSubmatch(text)
	if m == nil {
		return modelAnswer{}, false
	}
	a := modelAnswer{Intent: m[1], Parameters: map[string]interface{}{}, Reasoning: "fields extracted from malformed output"}
	if cm := fieldConfidenceRe.FindStringSubmatch(text); cm != nil {
		a.Confidence = cm[1]
	}
	for _, f := range fieldStringRes {
		if sm := f.re.FindStringSubmatch(text); sm != nil {
			a.Parameters[f.key] = sm[1]
		}
	}
	for _, f := range fieldNumberRes {
		if nm := f.re.FindStringSubmatch(text); nm != nil {
			a.Parameters[f.key] = nm[1]
		}
	}
	if im := fieldIngredientsRe.FindStringSubmatch(text); im != nil {
		var items []interface{}
		for _, part := range strings.Split(im[1], ",") {
			if part = strings.Trim(strings.TrimSpace(part), `"'`); part != "" {
				items = append(items, part)
			}
		}
		a.Parameters["ingredients"] = items
	}
	return a, true
}

// toResult 驗證標籤與必要參數；不在封閉集合內的標籤視為分類失敗
func (a modelAnswer) toResult() (Result, error) {
	kind, ok := KindFromString(a.Intent)
	if !ok {
		return Result{}, common.WrapErrorMessage(common.ErrClassificationFailure,
			fmt.Sprintf("model returned unknown intent %q", a.Intent), nil)
	}

	p := Params{
		Ingredient:   stringParam(a.Parameters, "ingredient"),
		Ingredients:  listParam(a.Parameters, "ingredients"),
		DietaryNeeds: stringParam(a.Parameters, "dietary_needs"),
		Query:        stringParam(a.Parameters, "query"),
		RecipeName:   stringParam(a.Parameters, "recipe_name"),
		Servings:     int(numberParam(a.Parameters, "servings")),
		Factor:       numberParam(a.Parameters, "factor"),
		Index:        int(numberParam(a.Parameters, "index")),
		Limit:        int(numberParam(a.Parameters, "limit")),
	}
	if _, ok := a.Parameters["servings"]; ok && kind == KindScaleRecipe {
		p.HasServings = true
	}
	switch kind {
	case KindNumberedReference:
		if p.Index <= 0 {
			return Result{}, common.WrapErrorMessage(common.ErrClassificationFailure, "numbered_reference without an index", nil)
		}
	case KindAnalyticsCount:
		if p.Ingredient == "" {
			return Result{}, common.WrapErrorMessage(common.ErrClassificationFailure, "analytics_count without an ingredient", nil)
		}
	case KindGetRecent:
		if p.Limit <= 0 {
			p.Limit = defaultRecent
		}
		p.Limit = min(p.Limit, maxRecent)
	}

	confidence := toFloat(a.Confidence)
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}
	return Result{
		Kind:       kind,
		Params:     p,
		Source:     SourceModel,
		Confidence: confidence,
		Reasoning:  a.Reasoning,
	}, nil
}

func stringParam(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func listParam(m map[string]interface{}, key string) []string {
	var out []string
	switch v := m[key].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func numberParam(m map[string]interface{}, key string) float64 {
	return toFloat(m[key])
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	}
	return 0
}
