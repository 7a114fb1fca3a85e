package recipe

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"recipe-assistant/internal/core/quantity"
	"recipe-assistant/internal/pkg/common"
)

// Hint 呼叫端提供的抽取提示
type Hint struct {
	Servings        int
	MainIngredients []string
}

// Outcome 抽取結果分類，用於指標
type Outcome string

const (
	OutcomeStructured Outcome = "structured" // 由段落標題找到食材
	OutcomeFallback   Outcome = "fallback"   // 全文掃描找到食材
	OutcomeEmpty      Outcome = "empty"      // 沒有找到任何食材或步驟
)

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionIngredients
	sectionInstructions
	sectionOther
)

var sectionPatterns = []struct {
	kind sectionKind
	re   *regexp.Regexp
}{
	{sectionIngredients, regexp.MustCompile(`(?i)^(ingredients?|you(?:'ll| will) need|what you(?:'ll)? need|shopping list)\b`)},
	{sectionInstructions, regexp.MustCompile(`(?i)^(instructions?|steps|directions|method|preparation|procedure|how to make(?: it)?)\b`)},
	{sectionOther, regexp.MustCompile(`(?i)^(notes?|tips?|variations?|nutrition(?:al)?(?: info(?:rmation)?| facts| breakdown)?|serving suggestions?|storage|equipment)\b`)},
}

var (
	headingDecorRe = regexp.MustCompile(`^[#*_\s]+|[*_\s]+$`)
	listMarkerRe   = regexp.MustCompile(`^\s*(?:[-*•–+]\s*|\d+[.)]\s+)`)
	numberedLineRe = regexp.MustCompile(`^\s*\d+[.)]\s+`)
	stepMarkerRe   = regexp.MustCompile(`(?i)^\s*(?:step\s+\d+\s*[:.)-]?|\d+\s*[.)]|[-*•–+])\s*`)
)

// section 一個以標題開始的段落
type section struct {
	kind  sectionKind
	start int // 內容第一行（標題的下一行）
	end   int // 不含
}

// document 已切行的原始文字
type document struct {
	raw      string
	lines    []string
	sections []section
}

func newDocument(raw string) *document {
	d := &document{raw: raw, lines: strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")}
	var open *section
	for i, line := range d.lines {
		kind, ok := detectHeading(line)
		if !ok {
			continue
		}
		if open != nil {
			open.end = i
			d.sections = append(d.sections, *open)
		}
		open = &section{kind: kind, start: i + 1}
	}
	if open != nil {
		open.end = len(d.lines)
		d.sections = append(d.sections, *open)
	}
	return d
}

// first 第一個指定類別的段落
func (d *document) first(kind sectionKind) (section, bool) {
	for _, s := range d.sections {
		if s.kind == kind {
			return s, true
		}
	}
	return section{}, false
}

// inside 第 i 行是否位於指定類別的段落中
func (d *document) inside(i int, kind sectionKind) bool {
	for _, s := range d.sections {
		if s.kind == kind && i >= s.start && i < s.end {
			return true
		}
	}
	return false
}

// detectHeading 判斷是否為段落標題，如 "## Ingredients"、"**Instructions:**"、"Steps"
func detectHeading(line string) (sectionKind, bool) {
	trimmed := strings.TrimSpace(line)
	decorated := strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "_")
	text := strings.TrimSpace(headingDecorRe.ReplaceAllString(trimmed, ""))
	colon := strings.HasSuffix(text, ":")
	text = strings.TrimSpace(strings.TrimSuffix(text, ":"))
	if text == "" || strings.Contains(text, ":") {
		return sectionNone, false
	}
	words := len(strings.Fields(parenRe.ReplaceAllString(text, "")))
	if words > 5 || (!decorated && !colon && words > 2) {
		return sectionNone, false
	}
	for _, p := range sectionPatterns {
		if p.re.MatchString(text) {
			return p.kind, true
		}
	}
	return sectionNone, false
}

// StripListMarker 去除項目符號或編號
func StripListMarker(line string) string {
	return strings.TrimSpace(listMarkerRe.ReplaceAllString(line, ""))
}

// ---------- title ----------

// titleStrategy 單一標題抽取策略
type titleStrategy func(lines []string) (string, bool)

// titleStrategies 依優先順序嘗試，第一個成功者勝出
var titleStrategies = []titleStrategy{
	markdownHeadingTitle,
	labeledTitle,
	boldTitle,
	leadingPhraseTitle,
}

// titleWindow 只在前幾個非空行尋找標題
const titleWindow = 5

var (
	markdownTitleRe = regexp.MustCompile(`^\s*#{1,6}\s+(.+?)\s*#*\s*$`)
	labeledTitleRe  = regexp.MustCompile(`(?i)^\s*[*_]*\s*(?:recipe name|recipe|title|dish)\s*[*_]*\s*:\s*(.+)$`)
	boldTitleRe     = regexp.MustCompile(`^\s*\*\*([^*]+)\*\*\s*:?\s*$`)
	preambleRe      = regexp.MustCompile(`(?i)^(sure|certainly|okay|ok|here|of course|absolutely|great)\b`)
)

func headLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
		if len(out) == titleWindow {
			break
		}
	}
	return out
}

func markdownHeadingTitle(lines []string) (string, bool) {
	for _, l := range headLines(lines) {
		if m := markdownTitleRe.FindStringSubmatch(l); m != nil {
			if _, isSection := detectHeading(l); isSection {
				continue
			}
			if t := cleanTitle(m[1]); t != "" {
				return t, true
			}
		}
	}
	return "", false
}

func labeledTitle(lines []string) (string, bool) {
	for _, l := range headLines(lines) {
		if m := labeledTitleRe.FindStringSubmatch(l); m != nil {
			if t := cleanTitle(m[1]); t != "" {
				return t, true
			}
		}
	}
	return "", false
}

func boldTitle(lines []string) (string, bool) {
	for _, l := range headLines(lines) {
		if m := boldTitleRe.FindStringSubmatch(l); m != nil {
			if _, isSection := detectHeading(l); isSection {
				continue
			}
			if t := cleanTitle(m[1]); t != "" {
				return t, true
			}
		}
	}
	return "", false
}

// leadingPhraseTitle 第一個非空行若像短名詞片語則作為標題
func leadingPhraseTitle(lines []string) (string, bool) {
	head := headLines(lines)
	if len(head) == 0 {
		return "", false
	}
	line := strings.TrimSpace(head[0])
	if _, isSection := detectHeading(line); isSection {
		return "", false
	}
	if listMarkerRe.MatchString(line) || preambleRe.MatchString(line) {
		return "", false
	}
	if strings.ContainsAny(line[len(line)-1:], ".!?:,;") {
		return "", false
	}
	words := strings.Fields(line)
	if len(words) > 8 || len(line) > 60 {
		return "", false
	}
	if first := []rune(line)[0]; unicode.IsDigit(first) {
		return "", false
	}
	if !strings.ContainsFunc(line, unicode.IsLetter) {
		return "", false
	}
	t := cleanTitle(line)
	return t, t != ""
}

var recipePrefixRe = regexp.MustCompile(`(?i)^recipe\s*(?:for\s+|:\s*)`)

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `*_#"'`+"`")
	s = recipePrefixRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.Trim(strings.TrimSpace(s), `*_"'`)
	s = strings.TrimSuffix(strings.TrimSpace(s), ":")
	return strings.Join(strings.Fields(s), " ")
}

// synthesizeTitle 以主要食材組成標題
func synthesizeTitle(mainIngredients []string) string {
	if len(mainIngredients) == 0 {
		return "Untitled Recipe"
	}
	main := titleCase(strings.TrimSpace(mainIngredients[0]))
	lower := strings.ToLower(main)
	switch {
	case strings.Contains(lower, "chicken"):
		return "Savory " + main + " Dish"
	case strings.Contains(lower, "beef"):
		return "Hearty " + main + " Recipe"
	case strings.Contains(lower, "fish"), strings.Contains(lower, "salmon"):
		return "Delicious " + main + " Dish"
	case strings.Contains(lower, "pasta"):
		return main + " Delight"
	default:
		return "Homemade " + main + " Recipe"
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// ---------- servings ----------

type servingsStrategy func(d *document) (int, bool)

var servingsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:serves|servings|serving size|yields?|makes)\s*[:\-]?\s*(?:about\s+)?(\d+)`),
	regexp.MustCompile(`(?i)\b(\d+)\s+(?:servings|portions|people)\b`),
}

// servingsWindow 份量只在文字開頭附近尋找
const servingsWindow = 15

func explicitServings(d *document) (int, bool) {
	n := len(d.lines)
	if n > servingsWindow {
		n = servingsWindow
	}
	top := strings.Join(d.lines[:n], "\n")
	for _, re := range servingsPatterns {
		if m := re.FindStringSubmatch(top); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil && v >= 1 && v <= 100 {
				return v, true
			}
		}
	}
	return 0, false
}

// ---------- ingredients ----------

type ingredientStrategy func(d *document) ([]common.Ingredient, bool)

func sectionIngredientsStrategy(d *document) ([]common.Ingredient, bool) {
	s, ok := d.first(sectionIngredients)
	if !ok {
		return nil, false
	}
	var out []common.Ingredient
	for _, line := range d.lines[s.start:s.end] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		// 子標題，例如 "For the sauce:"
		if strings.HasSuffix(trimmed, ":") {
			continue
		}
		// 沒有標題的編號步驟代表食材段落已結束
		if numberedLineRe.MatchString(trimmed) {
			if _, _, isQty := quantity.ParseLeading(StripListMarker(trimmed)); !isQty && len(strings.Fields(trimmed)) > 3 {
				break
			}
		}
		ing := ParseIngredientLine(trimmed)
		if ing.Name != "" {
			out = append(out, ing)
		}
	}
	return out, len(out) > 0
}

var nonIngredientWords = map[string]bool{
	"minute": true, "minutes": true, "min": true, "mins": true, "hour": true, "hours": true,
	"second": true, "seconds": true, "degree": true, "degrees": true, "servings": true,
	"serving": true, "people": true, "portions": true, "times": true, "days": true,
}

// scanIngredientsStrategy 沒有食材標題時，掃描全文中「數量 + 名詞」形狀的行
func scanIngredientsStrategy(d *document) ([]common.Ingredient, bool) {
	var out []common.Ingredient
	for i, line := range d.lines {
		if d.inside(i, sectionInstructions) || d.inside(i, sectionOther) {
			continue
		}
		if looksLikeIngredient(line) {
			out = append(out, ParseIngredientLine(line))
		}
	}
	return out, len(out) > 0
}

func looksLikeIngredient(line string) bool {
	cleaned := StripListMarker(line)
	q, rest, ok := quantity.ParseLeading(cleaned)
	if !ok || rest == "" {
		return false
	}
	if !unicode.IsLetter([]rune(rest)[0]) || strings.HasSuffix(rest, ".") {
		return false
	}
	words := strings.Fields(rest)
	if nonIngredientWords[strings.ToLower(strings.Trim(words[0], ",.;"))] {
		return false
	}
	if q.Unit != "" {
		return len(words) <= 8
	}
	return len(words) <= 5
}

var ingredientStrategies = []ingredientStrategy{
	sectionIngredientsStrategy,
	scanIngredientsStrategy,
}

// ---------- instructions ----------

type instructionStrategy func(d *document) ([]string, bool)

func sectionInstructionsStrategy(d *document) ([]string, bool) {
	s, ok := d.first(sectionInstructions)
	if !ok {
		return nil, false
	}
	steps := splitSteps(d.lines[s.start:s.end])
	return steps, len(steps) > 0
}

// numberedInstructionsStrategy 沒有步驟標題時，收集食材段落外的編號行
func numberedInstructionsStrategy(d *document) ([]string, bool) {
	var steps []string
	for i, line := range d.lines {
		if d.inside(i, sectionIngredients) && !isStepLike(line) {
			continue
		}
		if d.inside(i, sectionOther) || !numberedLineRe.MatchString(line) {
			continue
		}
		if looksLikeIngredient(line) {
			continue
		}
		if step := strings.TrimSpace(stepMarkerRe.ReplaceAllString(line, "")); step != "" {
			steps = append(steps, step)
		}
	}
	return steps, len(steps) > 0
}

func isStepLike(line string) bool {
	if !numberedLineRe.MatchString(line) {
		return false
	}
	_, _, isQty := quantity.ParseLeading(StripListMarker(line))
	return !isQty && len(strings.Fields(line)) > 3
}

var instructionStrategies = []instructionStrategy{
	sectionInstructionsStrategy,
	numberedInstructionsStrategy,
}

// splitSteps 以編號或空行切分步驟，保留順序
func splitSteps(lines []string) []string {
	var (
		steps   []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			steps = append(steps, s)
		}
		current.Reset()
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case stepMarkerRe.MatchString(trimmed):
			flush()
			current.WriteString(strings.TrimSpace(stepMarkerRe.ReplaceAllString(trimmed, "")))
		default:
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(trimmed)
		}
	}
	flush()
	return steps
}

// ---------- extract ----------

// Extract 將生成文字轉為結構化食譜；永遠不會失敗，標題永遠不為空並保留原始文字
func Extract(raw string, hint Hint) common.Recipe {
	r, _ := ExtractDetailed(raw, hint)
	return r
}

// ExtractDetailed 同 Extract，另外回傳食材來源分類
func ExtractDetailed(raw string, hint Hint) (common.Recipe, Outcome) {
	d := newDocument(raw)

	r := common.Recipe{
		Ingredients:     []common.Ingredient{},
		Instructions:    []string{},
		MainIngredients: cleanList(hint.MainIngredients),
		RawText:         raw,
	}

	outcome := OutcomeEmpty
	for i, strategy := range ingredientStrategies {
		if ings, ok := strategy(d); ok {
			r.Ingredients = ings
			outcome = OutcomeStructured
			if i > 0 {
				outcome = OutcomeFallback
			}
			break
		}
	}

	for _, strategy := range instructionStrategies {
		if steps, ok := strategy(d); ok {
			r.Instructions = steps
			break
		}
	}
	if outcome == OutcomeEmpty && len(r.Instructions) > 0 {
		outcome = OutcomeFallback
	}

	for _, strategy := range titleStrategies {
		if t, ok := strategy(d.lines); ok {
			r.Title = t
			break
		}
	}
	if r.Title == "" {
		main := r.MainIngredients
		if len(main) == 0 {
			main = r.IngredientNames()
		}
		r.Title = synthesizeTitle(main)
	}

	servingsStrategies := []servingsStrategy{
		explicitServings,
		func(*document) (int, bool) { return hint.Servings, hint.Servings > 0 },
	}
	r.Servings = common.DefaultServings
	for _, strategy := range servingsStrategies {
		if n, ok := strategy(d); ok {
			r.Servings = n
			break
		}
	}

	return r, outcome
}

func cleanList(items []string) []string {
	var out []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
