// Package quantity 解析、渲染與縮放食材數量
package quantity

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"recipe-assistant/internal/pkg/common"
)

// Quantity 正規化後的數量，AmountMax 只在範圍數量（如 2-3）時大於 Amount
type Quantity struct {
	Amount    float64
	AmountMax float64
	Unit      string // 正規單位名稱，無單位時為空
	Kind      common.UnitKind
}

// IsRange 是否為範圍數量
func (q Quantity) IsRange() bool {
	return q.AmountMax > q.Amount
}

func (q Quantity) top() float64 {
	if q.IsRange() {
		return q.AmountMax
	}
	return q.Amount
}

func (q Quantity) String() string {
	return Render(q)
}

const numPattern = `\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?|\.\d+`

var (
	leadingNumberRe = regexp.MustCompile(`^\s*(` + numPattern + `)(?:\s*(?:-|–|to)\s*(` + numPattern + `))?`)
	unitTokenRe     = regexp.MustCompile(`^\s*([A-Za-z]+)\.?(?:[^A-Za-z]|$)`)

	unicodeFractions = strings.NewReplacer(
		"½", " 1/2", "¼", " 1/4", "¾", " 3/4",
		"⅓", " 1/3", "⅔", " 2/3",
		"⅛", " 1/8", "⅜", " 3/8", "⅝", " 5/8", "⅞", " 7/8",
		"⁄", "/",
	)
)

// Parse 解析完整的數量字串（如 "1 1/2 cups"、"2-3 tbsp"），有多餘文字時視為失敗
func Parse(text string) (Quantity, error) {
	q, rest, ok := ParseLeading(text)
	if !ok || strings.TrimSpace(rest) != "" {
		return Quantity{}, common.WrapErrorMessage(common.ErrParseFailure,
			fmt.Sprintf("unrecognized quantity %q", text), nil)
	}
	return q, nil
}

// ParseLeading 解析文字開頭的數量與單位，回傳剩餘文字
func ParseLeading(text string) (Quantity, string, bool) {
	normalized := strings.TrimSpace(unicodeFractions.Replace(text))
	m := leadingNumberRe.FindStringSubmatchIndex(normalized)
	if m == nil {
		return Quantity{}, text, false
	}

	low, err := parseNumber(normalized[m[2]:m[3]])
	if err != nil {
		return Quantity{}, text, false
	}
	q := Quantity{Amount: low, Kind: common.UnitKindCount}
	if m[4] >= 0 {
		high, err := parseNumber(normalized[m[4]:m[5]])
		if err != nil {
			return Quantity{}, text, false
		}
		if high > low {
			q.AmountMax = high
		}
	}

	rest := normalized[m[1]:]
	if um := unitTokenRe.FindStringSubmatchIndex(rest); um != nil {
		if name, kind, ok := LookupUnit(rest[um[2]:um[3]]); ok {
			q.Unit = name
			q.Kind = kind
			end := um[3]
			if end < len(rest) && rest[end] == '.' {
				end++
			}
			rest = rest[end:]
		}
	}
	return q, strings.TrimSpace(rest), true
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if fields := strings.Fields(s); len(fields) == 2 {
		whole, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, err
		}
		frac, err := parseNumber(fields[1])
		if err != nil {
			return 0, err
		}
		return whole + frac, nil
	}
	if num, den, found := strings.Cut(s, "/"); found {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, err
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, err
		}
		if d == 0 {
			return 0, fmt.Errorf("zero denominator in %q", s)
		}
		return n / d, nil
	}
	return strconv.ParseFloat(s, 64)
}

// Scale 依倍數縮放，不做捨入（捨入只發生在 Render）
func Scale(q Quantity, factor float64) (Quantity, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return q, common.WrapErrorMessage(common.ErrInvalidScaleTarget,
			fmt.Sprintf("scale factor must be positive, got %v", factor), nil)
	}
	q.Amount *= factor
	q.AmountMax *= factor
	return q, nil
}

// ScaleFactor 計算 desired / original 的縮放倍數
func ScaleFactor(original, desired int) (float64, error) {
	if desired < 1 {
		return 0, common.WrapError(common.ErrInvalidScaleTarget, fmt.Errorf("got %d", desired))
	}
	if original < 1 {
		return 0, common.WrapErrorMessage(common.ErrInvalidScaleTarget,
			"original servings must be a positive whole number", fmt.Errorf("got %d", original))
	}
	return float64(desired) / float64(original), nil
}

// Convert 在同一類別內換算單位（容量或重量）
func Convert(q Quantity, unit string) (Quantity, error) {
	src, dst := lookup(q.Unit), lookup(unit)
	if src == nil || dst == nil {
		return q, common.WrapErrorMessage(common.ErrInvalidRequest,
			fmt.Sprintf("cannot convert %q to %q", q.Unit, unit), nil)
	}
	if src.Kind != dst.Kind || src.Kind == common.UnitKindCount {
		return q, common.WrapErrorMessage(common.ErrInvalidRequest,
			fmt.Sprintf("cannot convert %s (%s) to %s (%s)", src.Name, src.Kind, dst.Name, dst.Kind), nil)
	}
	ratio := src.Base / dst.Base
	q.Amount *= ratio
	q.AmountMax *= ratio
	q.Unit = dst.Name
	return q, nil
}

type promotion struct {
	to        string
	threshold float64
}

var promotions = map[string]promotion{
	"tsp":  {to: "tbsp", threshold: 3},
	"tbsp": {to: "cup", threshold: 4},
	"ml":   {to: "l", threshold: 1000},
	"g":    {to: "kg", threshold: 1000},
}

// Simplify 數量過大時換成較大的單位（tsp→tbsp→cup、ml→l、g→kg）
func Simplify(q Quantity) Quantity {
	for {
		p, ok := promotions[q.Unit]
		if !ok || q.Amount < p.threshold-1e-9 {
			return q
		}
		converted, err := Convert(q, p.to)
		if err != nil {
			return q
		}
		q = converted
	}
}

// FromIngredient 由食材取出數量，數量為空時回傳 false
func FromIngredient(ing common.Ingredient) (Quantity, bool) {
	if ing.Amount == nil {
		return Quantity{}, false
	}
	q := Quantity{Amount: *ing.Amount, Unit: ing.Unit, Kind: ing.UnitKind}
	if ing.AmountMax != nil {
		q.AmountMax = *ing.AmountMax
	}
	if q.Kind == common.UnitKindNone {
		q.Kind = common.UnitKindCount
		if _, kind, ok := LookupUnit(q.Unit); ok {
			q.Kind = kind
		}
	}
	return q, true
}

// ApplyTo 將數量寫回食材
func (q Quantity) ApplyTo(ing *common.Ingredient) {
	ing.Amount = common.FloatPtr(q.Amount)
	ing.AmountMax = nil
	if q.IsRange() {
		ing.AmountMax = common.FloatPtr(q.AmountMax)
	}
	ing.Unit = q.Unit
	ing.UnitKind = q.Kind
}
