package recipe

import (
	"regexp"
	"strconv"
	"strings"

	"recipe-assistant/internal/pkg/common"
)

var (
	firstIntRe    = regexp.MustCompile(`\d+`)
	macroAmountRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(mg|g|grams?)?\b`)
	healthNoteRe  = regexp.MustCompile(`(?i)benefit|rich in|good source|high in|excellent source`)
)

var macroFields = []struct {
	keyword string
	exclude string
	set     func(n *common.NutritionInfo, v string)
}{
	{"protein", "", func(n *common.NutritionInfo, v string) { n.Protein = v }},
	{"carb", "", func(n *common.NutritionInfo, v string) { n.Carbs = v }},
	{"fat", "trans", func(n *common.NutritionInfo, v string) { n.Fat = v }},
	{"fiber", "", func(n *common.NutritionInfo, v string) { n.Fiber = v }},
	{"sodium", "", func(n *common.NutritionInfo, v string) { n.Sodium = v }},
}

// ParseNutrition 從模型的營養說明文字中取出熱量與主要營養素，找不到任何欄位時回傳 nil
func ParseNutrition(text string) *common.NutritionInfo {
	n := &common.NutritionInfo{}
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if lower == "" {
			continue
		}

		if n.Calories == nil && strings.Contains(lower, "calorie") {
			if m := firstIntRe.FindString(lower[strings.Index(lower, "calorie"):]); m != "" {
				if v, err := strconv.ParseFloat(m, 64); err == nil {
					n.Calories = common.FloatPtr(v)
				}
			} else if m := firstIntRe.FindString(lower); m != "" {
				if v, err := strconv.ParseFloat(m, 64); err == nil {
					n.Calories = common.FloatPtr(v)
				}
			}
		}

		for _, f := range macroFields {
			idx := strings.Index(lower, f.keyword)
			if idx < 0 || seen[f.keyword] || (f.exclude != "" && strings.Contains(lower, f.exclude)) {
				continue
			}
			if m := macroAmountRe.FindStringSubmatch(lower[idx:]); m != nil {
				unit := m[2]
				if unit != "mg" {
					unit = "g"
				}
				f.set(n, m[1]+unit)
				seen[f.keyword] = true
			}
		}

		if healthNoteRe.MatchString(lower) {
			if note := strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "•*-")); note != "" {
				n.HealthNotes = append(n.HealthNotes, note)
			}
		}
	}
	if n.Empty() {
		return nil
	}
	return n
}

var dietaryRules = []struct {
	tag      string
	keywords []string
}{
	{"vegetarian", []string{"vegetarian"}},
	{"vegan", []string{"vegan"}},
	{"gluten-free", []string{"gluten"}},
	{"dairy-free", []string{"dairy", "lactose"}},
	{"low-carb", []string{"keto", "low-carb", "low carb"}},
	{"paleo", []string{"paleo"}},
}

// DietaryTags 將使用者的飲食需求轉為標準標籤
func DietaryTags(needs string) []string {
	lower := strings.ToLower(needs)
	if lower == "" || lower == "none" {
		return nil
	}
	var tags []string
	for _, rule := range dietaryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	return tags
}
