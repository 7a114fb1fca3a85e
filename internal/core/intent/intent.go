// Package intent 意圖分類：規則層優先，沒有規則命中時交給語言模型
package intent

import (
	"fmt"
	"strings"
)

// Kind 封閉的意圖列舉
type Kind int

const (
	KindUnknown Kind = iota
	KindCreateRecipe
	KindSearch
	KindGetRecent
	KindGetDetails
	KindScaleRecipe
	KindAnalyticsFrequent
	KindAnalyticsCount
	KindNumberedReference
)

var kindNames = map[Kind]string{
	KindCreateRecipe:      "create_recipe",
	KindSearch:            "search",
	KindGetRecent:         "get_recent",
	KindGetDetails:        "get_details",
	KindScaleRecipe:       "scale_recipe",
	KindAnalyticsFrequent: "analytics_frequent",
	KindAnalyticsCount:    "analytics_count",
	KindNumberedReference: "numbered_reference",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText 以字串形式輸出，方便 JSON 回應
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 無法辨識的標籤解析為 KindUnknown
func (k *Kind) UnmarshalText(text []byte) error {
	*k, _ = KindFromString(string(text))
	return nil
}

// KindFromString 將標籤轉回列舉，不在封閉集合內的標籤回傳 false
func KindFromString(label string) (Kind, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	for k, name := range kindNames {
		if name == label {
			return k, true
		}
	}
	return KindUnknown, false
}

// Kinds 所有合法意圖，依列舉順序
func Kinds() []Kind {
	return []Kind{
		KindCreateRecipe, KindSearch, KindGetRecent, KindGetDetails,
		KindScaleRecipe, KindAnalyticsFrequent, KindAnalyticsCount, KindNumberedReference,
	}
}

// Source 分類結果來源
type Source string

const (
	SourceRule         Source = "rule"
	SourceModel        Source = "model"
	SourceUnclassified Source = "unclassified"
)

// Params 各意圖抽出的參數，未使用的欄位為零值
type Params struct {
	Ingredient   string   `json:"ingredient,omitempty"`    // analytics_count
	Ingredients  []string `json:"ingredients,omitempty"`   // create_recipe
	DietaryNeeds string   `json:"dietary_needs,omitempty"` // create_recipe
	Query        string   `json:"query,omitempty"`         // search
	RecipeName   string   `json:"recipe_name,omitempty"`   // get_details
	Historical   bool     `json:"historical,omitempty"`    // get_details：指向過去建立的食譜
	Servings     int      `json:"servings,omitempty"`      // scale_recipe / create_recipe
	HasServings  bool     `json:"-"`                       // scale_recipe：使用者給了份量，0 或負數也算
	Factor       float64  `json:"factor,omitempty"`        // scale_recipe：double / halve
	Index        int      `json:"index,omitempty"`         // numbered_reference，從 1 開始
	Limit        int      `json:"limit,omitempty"`         // get_recent
}

// Result 分類結果。Source 區分規則命中、模型判斷與無法分類三種情況，
// 呼叫端可依此決定是否需要向使用者確認。
type Result struct {
	Kind       Kind    `json:"intent"`
	Params     Params  `json:"params"`
	Source     Source  `json:"source"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Help       bool    `json:"help,omitempty"` // 使用者在詢問助手能做什麼
}

// Context 分類時參考的對話狀態摘要
type Context struct {
	HasFocusedRecipe bool
	FocusedTitle     string
	LastListLen      int // 最近一次顯示的列表長度，0 代表沒有列表
}

func (c Context) summary() string {
	var parts []string
	if c.HasFocusedRecipe {
		parts = append(parts, fmt.Sprintf("a recipe is currently focused (%q)", c.FocusedTitle))
	} else {
		parts = append(parts, "no recipe is focused")
	}
	if c.LastListLen > 0 {
		parts = append(parts, fmt.Sprintf("a numbered list of %d recipes was just shown", c.LastListLen))
	} else {
		parts = append(parts, "no list is showing")
	}
	return strings.Join(parts, "; ")
}

func ruleMatch(kind Kind, p Params, reason string) Result {
	return Result{Kind: kind, Params: p, Source: SourceRule, Confidence: 1, Reasoning: reason}
}

func unclassified(reason string) Result {
	return Result{Kind: KindUnknown, Source: SourceUnclassified, Reasoning: reason}
}
