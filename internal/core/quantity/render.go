package quantity

import (
	"fmt"
	"math"
	"strconv"
)

type fraction struct {
	num, den int
}

func (f fraction) value() float64 {
	return float64(f.num) / float64(f.den)
}

// 常見烹飪分數（八分之一與三分之一系列），渲染時取最接近者
var cookingFractions = []fraction{
	{0, 1}, {1, 8}, {1, 4}, {1, 3}, {3, 8}, {1, 2}, {5, 8}, {2, 3}, {3, 4}, {7, 8}, {1, 1},
}

// smallestFraction 小於此值的數量以小數呈現
const smallestFraction = 1.0 / 16

// Render 將數量轉回人類可讀文字，例如 "2 1/4 cups"、"2-3 tbsp"、"250 g"
func Render(q Quantity) string {
	text := formatAmount(q.Amount, q.Unit)
	if q.IsRange() {
		text += "-" + formatAmount(q.AmountMax, q.Unit)
	}
	if q.Unit == "" {
		return text
	}
	return text + " " + unitLabel(q.Unit, q.top())
}

func formatAmount(v float64, unit string) string {
	if v <= 0 {
		return "0"
	}
	if isMetric(unit) {
		return formatDecimal(v, 2)
	}
	if v < smallestFraction {
		return formatDecimal(v, 3)
	}

	whole := math.Floor(v)
	frac := v - whole
	best := cookingFractions[0]
	for _, f := range cookingFractions[1:] {
		if math.Abs(frac-f.value()) < math.Abs(frac-best.value()) {
			best = f
		}
	}
	if best.num == best.den {
		whole++
		best = cookingFractions[0]
	}

	switch {
	case best.num == 0 && whole == 0:
		return formatDecimal(v, 3)
	case best.num == 0:
		return strconv.FormatFloat(whole, 'f', 0, 64)
	case whole == 0:
		return fmt.Sprintf("%d/%d", best.num, best.den)
	default:
		return fmt.Sprintf("%.0f %d/%d", whole, best.num, best.den)
	}
}

func formatDecimal(v float64, places int) string {
	p := math.Pow(10, float64(places))
	return strconv.FormatFloat(math.Round(v*p)/p, 'f', -1, 64)
}
