package recipe

import (
	"regexp"
	"strings"

	"recipe-assistant/internal/core/quantity"
	"recipe-assistant/internal/pkg/common"
)

var (
	parenRe         = regexp.MustCompile(`\(([^)]*)\)`)
	leadingOfRe     = regexp.MustCompile(`(?i)^of\s+`)
	vagueAmountRe   = regexp.MustCompile(`(?i)^(a pinch(?: of)?|a dash(?: of)?|a handful(?: of)?|a splash(?: of)?|a few|a little|some|several)\s+`)
	trailingNotesRe = regexp.MustCompile(`(?i)\s+(to taste|as needed|for garnish|for serving|optional)$`)
	spacesRe        = regexp.MustCompile(`\s+`)
)

// ParseIngredientLine 解析單行食材，例如 "1 1/2 cups flour, sifted"。
// 數量無法解析時 Amount 為 nil，模糊數量（如 "a pinch"）保留在 Notes。
func ParseIngredientLine(line string) common.Ingredient {
	original := StripListMarker(strings.ReplaceAll(line, "**", ""))
	text := original

	var notes []string
	text = parenRe.ReplaceAllStringFunc(text, func(m string) string {
		if n := strings.TrimSpace(m[1 : len(m)-1]); n != "" {
			notes = append(notes, n)
		}
		return " "
	})
	text = strings.TrimSpace(spacesRe.ReplaceAllString(text, " "))

	var ing common.Ingredient
	if q, rest, ok := quantity.ParseLeading(text); ok && rest != "" {
		q.ApplyTo(&ing)
		text = rest
	} else if m := vagueAmountRe.FindStringSubmatch(text); m != nil {
		notes = append([]string{strings.TrimSuffix(strings.ToLower(m[1]), " of")}, notes...)
		text = text[len(m[0]):]
	}
	text = leadingOfRe.ReplaceAllString(text, "")

	if name, rest, found := strings.Cut(text, ","); found {
		if rest = strings.TrimSpace(rest); rest != "" {
			notes = append(notes, rest)
		}
		text = name
	}
	if m := trailingNotesRe.FindStringSubmatch(text); m != nil {
		notes = append(notes, strings.ToLower(m[1]))
		text = text[:len(text)-len(m[0])]
	}

	ing.Name = strings.TrimSpace(text)
	if ing.Name == "" {
		ing.Name = original
	}
	ing.Notes = strings.Join(notes, "; ")
	return ing
}

// DisplayIngredient 渲染食材行，例如 "2 1/4 cups flour (sifted)"
func DisplayIngredient(ing common.Ingredient) string {
	var b strings.Builder
	if q, ok := quantity.FromIngredient(ing); ok {
		b.WriteString(quantity.Render(q))
		b.WriteString(" ")
	}
	b.WriteString(ing.Name)
	if ing.Notes != "" {
		b.WriteString(" (")
		b.WriteString(ing.Notes)
		b.WriteString(")")
	}
	return b.String()
}
