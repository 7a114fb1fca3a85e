package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// rule 規則層的一組比對，按順序嘗試，第一個命中者勝出
type rule struct {
	name  string
	match func(t string, c Context) (Result, bool)
}

// rules 順序很重要：越具體的規則越前面
var rules = []rule{
	{"numbered_reference", matchNumbered},
	{"help", matchHelp},
	{"analytics_frequent", matchFrequent},
	{"analytics_count", matchCount},
	{"historical_details", matchHistorical},
	{"scale_recipe", matchScale},
	{"create_recipe", matchCreate},
	{"get_recent", matchRecent},
	{"get_details", matchDetails},
	{"search", matchSearch},
	{"bare_ingredient", matchBareIngredient},
}

// ClassifyRules 只執行規則層。結果只取決於 (utterance, context)，沒有其他狀態。
func ClassifyRules(utterance string, c Context) (Result, bool) {
	t := normalize(utterance)
	for _, r := range rules {
		if res, ok := r.match(t, c); ok {
			return res, true
		}
	}
	return Result{}, false
}

var (
	spaceRe         = regexp.MustCompile(`\s+`)
	trailingPunctRe = regexp.MustCompile(`[\s?!.,;:]+$`)
)

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("’", "'", "‘", "'", "“", "\"", "”", "\"").Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return trailingPunctRe.ReplaceAllString(s, "")
}

func mustCompileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func anyMatch(res []*regexp.Regexp, t string) bool {
	for _, re := range res {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// --- numbered reference ---

var (
	numberedRe = regexp.MustCompile(`^(?:(?:show|open|see|view|pick|choose|get)\s+(?:me\s+)?)?(?:(?:the\s+)?recipe\s+)?(?:#\s*|no\.?\s*|number\s+)?(\d{1,4})$`)
	ordinalRe  = regexp.MustCompile(`^(?:(?:show|open|see|view|pick|choose|get)\s+(?:me\s+)?)?(?:the\s+)?(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)(?:\s+(?:one|recipe))?$`)
	lastOneRe  = regexp.MustCompile(`^(?:(?:show|open|see|view|pick|choose|get)\s+(?:me\s+)?)?the\s+last\s+one$`)
)

var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// 顯示中的列表存在時，單獨的數字一律視為列表編號
func matchNumbered(t string, c Context) (Result, bool) {
	if c.LastListLen <= 0 {
		return Result{}, false
	}
	if m := numberedRe.FindStringSubmatch(t); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Result{}, false
		}
		return ruleMatch(KindNumberedReference, Params{Index: n}, "number refers to the list on screen"), true
	}
	if m := ordinalRe.FindStringSubmatch(t); m != nil {
		return ruleMatch(KindNumberedReference, Params{Index: ordinals[m[1]]}, "ordinal refers to the list on screen"), true
	}
	if lastOneRe.MatchString(t) {
		return ruleMatch(KindNumberedReference, Params{Index: c.LastListLen}, "last entry of the list on screen"), true
	}
	return Result{}, false
}

// --- help ---

var helpRe = regexp.MustCompile(`^(?:help|help me|hi|hello|hey|menu|what can you do|what do you do|how does this work|what are my options|\?)$`)

func matchHelp(t string, _ Context) (Result, bool) {
	if t == "" || helpRe.MatchString(t) {
		res := unclassified("help requested")
		res.Help = true
		return res, true
	}
	return Result{}, false
}

// --- analytics ---

var frequentRes = mustCompileAll(
	`\bmost (?:often|frequent(?:ly)?|common|popular)\b`,
	`\bmost (?:made|cooked)\b`,
	`\b(?:cook|make|made|have|had|eat)\b.*\bthe most\b`,
	`\b(?:favorite|favourite|go[- ]?to|usual|regular|staple|signature) (?:recipe|dish|meal)\b`,
	`\bwhat\b.*\b(?:i|we)\b.*\b(?:usually|always)\b.*\b(?:cook|make|eat)\b`,
	`\b(?:i|we)\b.*\balways\b.*\b(?:make|cook|have)\b`,
)

func matchFrequent(t string, _ Context) (Result, bool) {
	if anyMatch(frequentRes, t) {
		return ruleMatch(KindAnalyticsFrequent, Params{}, "frequency question"), true
	}
	return Result{}, false
}

var (
	countRes = mustCompileAll(
		`\bhow (?:often|frequently) (?:do|did|have) (?:i|we)(?: ever)? (?:use|used|cook|cooked|make|made|eat|eaten|have|had)\s+(.+)$`,
		`\bhow many (?:of my |of the )?(?:recipes|dishes|times)\b.*?\b(?:with|use|uses|using|used|contain|contains|containing|have|has|include|includes|including)\s+(.+)$`,
		`\bhow many\s+([a-z][a-z ]*?)\s+(?:recipes|dishes)\b`,
		`\bcount (?:my |the |all )?(?:recipes |dishes )?(?:with |containing |using |that (?:have|use) )?(.+)$`,
		`\bfrequency of\s+(.+)$`,
	)
	countTrailRe = regexp.MustCompile(`\s+(?:in (?:my|the|all) (?:recipes|cooking|dishes|meals)|recipes|dishes|meals|do i have|have i made|in total|so far|overall)$`)
	leadingArtRe = regexp.MustCompile(`^(?:the|a|an|some|my)\s+`)
)

func matchCount(t string, _ Context) (Result, bool) {
	for _, re := range countRes {
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		ingredient := cleanPhrase(m[1], countTrailRe)
		if ingredient == "" || ingredient == "recipes" || ingredient == "it" {
			continue
		}
		return ruleMatch(KindAnalyticsCount, Params{Ingredient: ingredient}, "ingredient count question"), true
	}
	return Result{}, false
}

func cleanPhrase(s string, trail *regexp.Regexp) string {
	s = strings.TrimSpace(s)
	for {
		next := strings.TrimSpace(trail.ReplaceAllString(s, ""))
		next = strings.TrimSpace(leadingArtRe.ReplaceAllString(next, ""))
		if next == s {
			return s
		}
		s = next
	}
}

// --- historical references ---

var historyRes = mustCompileAll(
	`\b(?:give|show|get|open|pull up|bring up)(?: me)?(?: (?:a|an|the|my))? (?:previous|last|recent|earlier|past|old)(?: ([a-z]+(?: [a-z]+)?))? (?:recipe|dish)\b`,
	`\b(?:previous|earlier|past|old)(?: ([a-z]+(?: [a-z]+)?))? (?:recipe|dish)\b`,
	`\b(?:the one|the recipe|what) (?:i|we) (?:made|had|cooked) (?:before|earlier|last time)\b()`,
)

func matchHistorical(t string, _ Context) (Result, bool) {
	for _, re := range historyRes {
		if m := re.FindStringSubmatch(t); m != nil {
			name := strings.TrimSpace(m[1])
			if name == "the" || name == "my" {
				name = ""
			}
			return ruleMatch(KindGetDetails, Params{RecipeName: name, Historical: true}, "reference to a past recipe"), true
		}
	}
	return Result{}, false
}

// --- scaling ---

var (
	servingsRe  = regexp.MustCompile(`\b(\d+)\s*(?:people|persons?|servings?|portions?|guests|serves|adults)\b`)
	anyNumberRe = regexp.MustCompile(`\b(\d+)\b`)
	// 縮放目標可能帶負號，"2-3 people" 中的 "-3" 不算
	signedServingsRe = regexp.MustCompile(`(?:^|[^\w-])(-?\d+)\s*(?:people|persons?|servings?|portions?|guests|serves|adults)\b`)
	signedForRe      = regexp.MustCompile(`\b(?:for|to)\s+(-?\d+)\b`)
	signedNumberRe   = regexp.MustCompile(`(?:^|[^\w-])(-?\d+)\b`)
	scaleWordRe      = regexp.MustCompile(`\b(?:scale|rescale|adjust|resize|bigger|smaller|servings?|portions?|people|persons?|guests)\b`)
	makeItForRe      = regexp.MustCompile(`\b(?:make|do|cook|change) (?:it|this|that)(?: recipe)? for\s+\d+`)
	factorRe         = regexp.MustCompile(`\b(double|twice|triple|quadruple|halve|half)\b`)
)

var factorWords = map[string]float64{
	"double": 2, "twice": 2, "triple": 3, "quadruple": 4, "halve": 0.5, "half": 0.5,
}

func matchScale(t string, _ Context) (Result, bool) {
	// 建立食譜的請求也常帶有份量（"for 4 people"），交給 create 規則
	if anyMatch(createRes, t) {
		return Result{}, false
	}
	if m := factorRe.FindStringSubmatch(t); m != nil {
		return ruleMatch(KindScaleRecipe, Params{Factor: factorWords[m[1]]}, "relative scaling"), true
	}
	if !scaleWordRe.MatchString(t) && !makeItForRe.MatchString(t) {
		return Result{}, false
	}
	var p Params
	p.Servings, p.HasServings = servingsIn(t)
	return ruleMatch(KindScaleRecipe, p, "serving adjustment"), true
}

// servingsIn 找出目標份量。0 與負數照實回傳，由縮放本身拒絕。
func servingsIn(t string) (int, bool) {
	for _, re := range []*regexp.Regexp{signedServingsRe, signedForRe, signedNumberRe} {
		if m := re.FindStringSubmatch(t); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// --- creation ---

var (
	createRes = mustCompileAll(
		`\b(?:create|generate|invent|cook up|come up with|new recipe|suggest|recommend)\b`,
		`\bmake (?:me )?(?:a|an|some|something)\b`,
		`\bgive me (?:a|an|some)\b`,
		`\bwhat (?:can|could|should) (?:i|we) (?:make|cook)\b`,
		`\bi (?:have|got)\b.*\b(?:what|ideas?|recipe)\b`,
		`\b(?:recipe|something|dish|meal) (?:with|using)\b`,
	)
	ingredientListRes = mustCompileAll(
		`\b(?:with|using|out of|from)\s+(.+?)(?:\s+for\s+\d+.*)?$`,
		`\brecipe for\s+(.+?)(?:\s+for\s+\d+.*)?$`,
		`\b(?:a|an|some)\s+(.+?)\s+(?:recipe|dish|meal)s?\b`,
		`\bi (?:have|got)\s+(.+?)(?:,?\s+what\b.*)?$`,
	)
	dietaryRe      = regexp.MustCompile(`\b(vegetarian|vegan|gluten[- ]free|dairy[- ]free|lactose[- ]free|keto|low[- ]carb|paleo)\b`)
	listSplitRe    = regexp.MustCompile(`\s*(?:,|&|\band\b|\bor\b|\bplus\b)\s*`)
	fillerWordsRe  = regexp.MustCompile(`\b(?:new|quick|easy|simple|healthy|good|nice|delicious|tasty|recipes?|dish|meal|please|something|some|the|a|an|me|for|dinner|lunch|breakfast|tonight)\b`)
	servingsTailRe = regexp.MustCompile(`\s+for\s+\d+.*$`)
)

func matchCreate(t string, _ Context) (Result, bool) {
	if !anyMatch(createRes, t) {
		return Result{}, false
	}
	p := Params{Servings: servingsInCreate(t)}
	if tags := dietaryRe.FindAllString(t, -1); len(tags) > 0 {
		p.DietaryNeeds = strings.Join(tags, ", ")
	}
	p.Ingredients = ingredientsIn(t)
	return ruleMatch(KindCreateRecipe, p, "recipe creation request"), true
}

func servingsInCreate(t string) int {
	if m := servingsRe.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 0
}

func ingredientsIn(t string) []string {
	for _, re := range ingredientListRes {
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		if items := splitIngredients(m[1]); len(items) > 0 {
			return items
		}
	}
	return nil
}

func splitIngredients(s string) []string {
	s = servingsTailRe.ReplaceAllString(s, "")
	s = servingsRe.ReplaceAllString(s, " ")
	s = dietaryRe.ReplaceAllString(s, " ")
	var items []string
	for _, part := range listSplitRe.Split(s, -1) {
		part = fillerWordsRe.ReplaceAllString(part, " ")
		part = strings.TrimSpace(spaceRe.ReplaceAllString(part, " "))
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// --- recent ---

var (
	recentWordRe = regexp.MustCompile(`\b(?:recent|recently|latest|newest|last)\b`)
	showWordRe   = regexp.MustCompile(`\b(?:show|list|display|see|view|get|what are|what were|what did)\b`)
	myRecipesRe  = regexp.MustCompile(`\b(?:show|list|display|see|view)\b.*\b(?:my|all|saved)\b.*\brecipes\b`)
)

const (
	defaultRecent = 5
	maxRecent     = 50
)

func matchRecent(t string, _ Context) (Result, bool) {
	if !(recentWordRe.MatchString(t) && showWordRe.MatchString(t)) && !myRecipesRe.MatchString(t) {
		return Result{}, false
	}
	limit := defaultRecent
	if m := anyNumberRe.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			limit = min(n, maxRecent)
		}
	}
	return ruleMatch(KindGetRecent, Params{Limit: limit}, "recent recipes request"), true
}

// --- details ---

var (
	detailsRe     = regexp.MustCompile(`\b(?:steps|instructions|directions|method|details|full recipe|ingredients (?:for|of|in)|how (?:do|should|can) i (?:make|cook|prepare) (?:it|this|that)|show (?:me )?(?:the )?recipe for)\b`)
	detailsNameRe = regexp.MustCompile(`\b(?:for|of|in)\s+(?:the\s+|my\s+)?(.+?)(?:\s+recipe)?$`)
	pronounRe     = regexp.MustCompile(`^(?:it|this|that|this one|that one|this recipe|that recipe)$`)
)

func matchDetails(t string, _ Context) (Result, bool) {
	if !detailsRe.MatchString(t) {
		return Result{}, false
	}
	var name string
	if m := detailsNameRe.FindStringSubmatch(t); m != nil && !pronounRe.MatchString(m[1]) {
		name = strings.TrimSpace(m[1])
	}
	return ruleMatch(KindGetDetails, Params{RecipeName: name}, "detail request"), true
}

// --- search ---

var (
	searchRe      = regexp.MustCompile(`\b(?:find|search|look(?:ing)? for|look up|show me|do i have|do you have|any|recipes? (?:with|containing|that (?:have|use)))\b`)
	searchNoiseRe = regexp.MustCompile(`\b(?:find|search(?: for)?|look(?:ing)? for|look up|show|me|do i have|do you have|any|my|some|all|recipes?|dishes|please|with|containing|that have|that use|for|the|a|an|i|can|you)\b`)
)

func matchSearch(t string, _ Context) (Result, bool) {
	if !searchRe.MatchString(t) {
		return Result{}, false
	}
	q := strings.TrimSpace(spaceRe.ReplaceAllString(searchNoiseRe.ReplaceAllString(t, " "), " "))
	if q == "" {
		return Result{}, false
	}
	return ruleMatch(KindSearch, Params{Query: q}, "search request"), true
}

// --- bare ingredient ---

var knownIngredients = map[string]bool{
	"chicken": true, "beef": true, "pork": true, "lamb": true, "turkey": true, "duck": true,
	"fish": true, "salmon": true, "tuna": true, "shrimp": true, "prawns": true, "tofu": true,
	"pasta": true, "noodles": true, "rice": true, "quinoa": true, "bread": true, "potatoes": true,
	"potato": true, "tomato": true, "tomatoes": true, "onion": true, "garlic": true, "cheese": true,
	"eggs": true, "egg": true, "mushrooms": true, "mushroom": true, "spinach": true, "broccoli": true,
	"carrots": true, "beans": true, "lentils": true, "chickpeas": true, "peppers": true, "avocado": true,
	"curry": true, "soup": true, "salad": true, "stew": true, "pizza": true, "tacos": true,
}

func matchBareIngredient(t string, _ Context) (Result, bool) {
	words := strings.Fields(t)
	if len(words) == 0 || len(words) > 4 {
		return Result{}, false
	}
	for _, w := range words {
		if knownIngredients[w] {
			return ruleMatch(KindSearch, Params{Query: t}, "bare ingredient mention"), true
		}
	}
	return Result{}, false
}
