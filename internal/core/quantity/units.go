package quantity

import (
	"strings"

	"recipe-assistant/internal/pkg/common"
)

// unitDef 已知單位定義，Base 為換算到基準單位（ml 或 g）的係數
type unitDef struct {
	Name    string
	Kind    common.UnitKind
	Base    float64
	Metric  bool
	Plural  string
	Aliases []string
}

const tspInML = 4.92892159375

var unitTable = []unitDef{
	// volume (ml)
	{Name: "cup", Kind: common.UnitKindVolume, Base: tspInML * 48, Plural: "cups", Aliases: []string{"cup", "cups", "c"}},
	{Name: "tbsp", Kind: common.UnitKindVolume, Base: tspInML * 3, Aliases: []string{"tbsp", "tbsps", "tbs", "tbl", "tablespoon", "tablespoons"}},
	{Name: "tsp", Kind: common.UnitKindVolume, Base: tspInML, Aliases: []string{"tsp", "tsps", "teaspoon", "teaspoons"}},
	{Name: "ml", Kind: common.UnitKindVolume, Base: 1, Metric: true, Aliases: []string{"ml", "milliliter", "milliliters", "millilitre", "millilitres"}},
	{Name: "l", Kind: common.UnitKindVolume, Base: 1000, Metric: true, Aliases: []string{"l", "liter", "liters", "litre", "litres"}},

	// weight (g)
	{Name: "g", Kind: common.UnitKindWeight, Base: 1, Metric: true, Aliases: []string{"g", "gr", "gram", "grams"}},
	{Name: "kg", Kind: common.UnitKindWeight, Base: 1000, Metric: true, Aliases: []string{"kg", "kgs", "kilo", "kilos", "kilogram", "kilograms"}},
	{Name: "oz", Kind: common.UnitKindWeight, Base: 28.349523125, Aliases: []string{"oz", "ounce", "ounces"}},
	{Name: "lb", Kind: common.UnitKindWeight, Base: 453.59237, Aliases: []string{"lb", "lbs", "pound", "pounds"}},

	// count
	{Name: "piece", Kind: common.UnitKindCount, Base: 1, Plural: "pieces", Aliases: []string{"piece", "pieces", "pc", "pcs"}},
	{Name: "clove", Kind: common.UnitKindCount, Base: 1, Plural: "cloves", Aliases: []string{"clove", "cloves"}},
	{Name: "whole", Kind: common.UnitKindCount, Base: 1, Aliases: []string{"whole"}},
}

var unitIndex = func() map[string]*unitDef {
	idx := make(map[string]*unitDef)
	for i := range unitTable {
		for _, a := range unitTable[i].Aliases {
			idx[a] = &unitTable[i]
		}
	}
	return idx
}()

// LookupUnit 以不分大小寫方式查詢單位，回傳正規名稱與類別
func LookupUnit(token string) (string, common.UnitKind, bool) {
	def := lookup(token)
	if def == nil {
		return "", common.UnitKindNone, false
	}
	return def.Name, def.Kind, true
}

func lookup(token string) *unitDef {
	token = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(token)), ".")
	return unitIndex[token]
}

func isMetric(unit string) bool {
	if def := lookup(unit); def != nil {
		return def.Metric
	}
	return false
}

func unitLabel(unit string, amount float64) string {
	def := lookup(unit)
	if def == nil {
		return unit
	}
	if amount > 1 && def.Plural != "" {
		return def.Plural
	}
	return def.Name
}
