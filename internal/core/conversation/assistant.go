// Package conversation 對話調度：分類使用者語句，依意圖呼叫生成、搜尋、縮放與統計
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-assistant/internal/core/intent"
	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/core/store"
	"recipe-assistant/internal/core/websearch"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// ReplyKind 回覆種類
type ReplyKind string

const (
	ReplyRecipe        ReplyKind = "recipe"
	ReplyList          ReplyKind = "list"
	ReplyAnalytics     ReplyKind = "analytics"
	ReplyScaled        ReplyKind = "scaled"
	ReplyClarification ReplyKind = "clarification"
	ReplyError         ReplyKind = "error"
)

// Reply 一個回合的回覆
type Reply struct {
	SessionID string                 `json:"session_id"`
	Kind      ReplyKind              `json:"kind"`
	Message   string                 `json:"message"`
	Intent    intent.Kind            `json:"intent"`
	Source    intent.Source          `json:"source"`
	Recipe    *common.Recipe         `json:"recipe,omitempty"`
	Recipes   []common.RecipeSummary `json:"recipes,omitempty"`
	Online    bool                   `json:"online,omitempty"` // 列表來自線上搜尋，未保存
	Count     *int                   `json:"count,omitempty"`
	Code      string                 `json:"code,omitempty"`
}

// Classifier 意圖分類
type Classifier interface {
	Classify(ctx context.Context, utterance string, cc intent.Context) (intent.Result, error)
}

// Generator 食譜生成
type Generator interface {
	Generate(ctx context.Context, req recipe.GenerateRequest) (common.Recipe, error)
}

// Options 調度參數
type Options struct {
	SearchLimit  int
	ModelTimeout time.Duration // 分類與生成的模型呼叫逾時
	WebTimeout   time.Duration
}

// Assistant 對話調度器。模型與網路呼叫都帶有逾時，且不會持有食譜庫的寫鎖。
type Assistant struct {
	classifier Classifier
	generator  Generator
	store      *store.Store
	web        websearch.Searcher
	sessions   *Sessions
	opts       Options
}

// NewAssistant 創建調度器，web 可為 nil（不使用線上搜尋）
func NewAssistant(classifier Classifier, generator Generator, st *store.Store, web websearch.Searcher, sessions *Sessions, opts Options) *Assistant {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 5
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = 60 * time.Second
	}
	if opts.WebTimeout <= 0 {
		opts.WebTimeout = 10 * time.Second
	}
	return &Assistant{
		classifier: classifier,
		generator:  generator,
		store:      st,
		web:        web,
		sessions:   sessions,
		opts:       opts,
	}
}

// Sessions 取得 session 管理器
func (a *Assistant) Sessions() *Sessions {
	return a.sessions
}

const helpMessage = `I can help you with recipes. Try:
- "Create a recipe with chicken, rice and broccoli"
- "Find pasta recipes" or "show me my recent recipes"
- "Scale it to 6 servings" or "double the recipe"
- "What do I cook most often?" or "How often do I use chicken?"
- After a list, reply with a number to open that recipe.`

// Handle 處理一句使用者輸入。sessionID 為空或已過期時會建立新的 session，
// 回覆中的 SessionID 即為實際使用的 session。同一 session 的回合依序執行。
func (a *Assistant) Handle(ctx context.Context, sessionID, utterance string) Reply {
	sess := a.sessions.GetOrCreate(sessionID)
	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	st := &sess.state
	st.Turns++

	reply := a.dispatch(ctx, st, utterance)
	reply.SessionID = sess.ID

	common.LogInfo("對話回合完成",
		zap.String("session_id", sess.ID),
		zap.Int("turn", st.Turns),
		zap.String("intent", reply.Intent.String()),
		zap.String("source", string(reply.Source)),
		zap.String("kind", string(reply.Kind)),
	)
	return reply
}

// State 取得 session 目前的上下文副本
func (a *Assistant) State(sessionID string) (State, bool) {
	sess, ok := a.sessions.Get(sessionID)
	if !ok {
		return State{}, false
	}
	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	out := State{Turns: sess.state.Turns}
	if sess.state.Focused != nil {
		out.focus(*sess.state.Focused)
	}
	out.list(sess.state.LastListed)
	return out, true
}

func (a *Assistant) dispatch(ctx context.Context, st *State, utterance string) Reply {
	cc := intent.Context{LastListLen: len(st.LastListed)}
	if st.Focused != nil {
		cc.HasFocusedRecipe = true
		cc.FocusedTitle = st.Focused.Title
	}

	cctx, cancel := context.WithTimeout(ctx, a.opts.ModelTimeout)
	res, err := a.classifier.Classify(cctx, utterance, cc)
	cancel()
	if err != nil {
		return Reply{
			Kind:    ReplyClarification,
			Message: "Sorry, I didn't understand that. Could you rephrase? Say \"help\" to see what I can do.",
			Source:  intent.SourceUnclassified,
			Code:    codeOf(err),
		}
	}
	if res.Help {
		return Reply{Kind: ReplyClarification, Message: helpMessage, Source: res.Source}
	}

	var reply Reply
	switch res.Kind {
	case intent.KindCreateRecipe:
		reply = a.create(ctx, st, res.Params)
	case intent.KindSearch:
		reply = a.search(ctx, st, res.Params)
	case intent.KindGetRecent:
		reply = a.recent(st, res.Params)
	case intent.KindGetDetails:
		reply = a.details(ctx, st, res.Params)
	case intent.KindScaleRecipe:
		reply = a.scale(st, res.Params)
	case intent.KindAnalyticsFrequent:
		reply = a.frequent()
	case intent.KindAnalyticsCount:
		reply = a.count(res.Params)
	case intent.KindNumberedReference:
		reply = a.numbered(st, res.Params)
	default:
		reply = clarify("Sorry, I didn't understand that. Say \"help\" to see what I can do.")
	}
	reply.Intent = res.Kind
	reply.Source = res.Source
	return reply
}

func (a *Assistant) create(ctx context.Context, st *State, p intent.Params) Reply {
	if len(p.Ingredients) == 0 {
		return clarify("Which ingredients would you like to use?")
	}
	if a.generator == nil {
		return failure(common.ErrModelUnavailable, "Recipe generation is not available right now.")
	}

	gctx, cancel := context.WithTimeout(ctx, a.opts.ModelTimeout)
	defer cancel()
	r, err := a.generator.Generate(gctx, recipe.GenerateRequest{
		Ingredients:  p.Ingredients,
		DietaryNeeds: p.DietaryNeeds,
		Servings:     p.Servings,
	})
	if err != nil {
		common.LogWarn("食譜生成失敗", zap.Strings("ingredients", p.Ingredients), zap.Error(err))
		if errors.Is(err, common.ErrInvalidScaleTarget) || errors.Is(err, common.ErrInvalidRequest) {
			return failure(err, "I can't make a recipe with those settings.")
		}
		return failure(err, "Sorry, I couldn't create a recipe right now. Please try again in a moment.")
	}
	if r.IsEmpty() {
		return failure(common.ErrParseFailure, "Sorry, I couldn't read a recipe from the response. Please try again.")
	}

	saved, err := a.store.Add(ctx, r)
	if err != nil {
		common.LogError("食譜保存失敗", zap.String("title", r.Title), zap.Error(err))
		return failure(err, "I created a recipe but couldn't save it.")
	}
	st.focus(saved)
	return recipeReply(ReplyRecipe, &saved, "")
}

func (a *Assistant) search(ctx context.Context, st *State, p intent.Params) Reply {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		query = strings.TrimSpace(strings.Join(append([]string{p.Ingredient}, p.Ingredients...), " "))
	}
	if query == "" {
		return clarify("What would you like to search for?")
	}

	matches, err := a.store.Search(ctx, query, a.opts.SearchLimit)
	if err != nil {
		return failure(err, "Search failed.")
	}
	if len(matches) > 0 {
		recipes := make([]common.Recipe, len(matches))
		for i, m := range matches {
			recipes[i] = m.Recipe
		}
		return listReply(st, RenderList(fmt.Sprintf("Found %s for %q:", plural(len(recipes), "saved recipe", "saved recipes"), query), recipes), recipes, false)
	}

	if a.web != nil {
		wctx, cancel := context.WithTimeout(ctx, a.opts.WebTimeout)
		online, err := a.web.Search(wctx, query, a.opts.SearchLimit)
		cancel()
		if err != nil {
			common.LogWarn("線上食譜搜尋失敗", zap.String("query", query), zap.Error(err))
		} else if len(online) > 0 {
			return listReply(st, RenderList(fmt.Sprintf("No saved recipes match %q. Found these online:", query), online), online, true)
		}
	}
	return Reply{Kind: ReplyList, Message: fmt.Sprintf("I couldn't find any recipes for %q.", query), Recipes: []common.RecipeSummary{}}
}

func (a *Assistant) recent(st *State, p intent.Params) Reply {
	limit := p.Limit
	if limit <= 0 {
		limit = a.opts.SearchLimit
	}
	recipes, err := a.store.Recent(limit)
	if err != nil {
		return failure(err, "Could not load recent recipes.")
	}
	if len(recipes) == 0 {
		return Reply{Kind: ReplyList, Message: "You haven't saved any recipes yet.", Recipes: []common.RecipeSummary{}}
	}
	return listReply(st, RenderList("Your recent recipes:", recipes), recipes, false)
}

func (a *Assistant) details(ctx context.Context, st *State, p intent.Params) Reply {
	if p.Historical {
		r, ok := a.store.LatestMatching(p.RecipeName)
		if !ok {
			if p.RecipeName != "" {
				return clarify(fmt.Sprintf("I couldn't find an earlier %s recipe.", p.RecipeName))
			}
			return clarify("You haven't saved any recipes yet.")
		}
		st.focus(r)
		return recipeReply(ReplyRecipe, &r, "")
	}

	if name := strings.TrimSpace(p.RecipeName); name != "" {
		if r, ok := a.store.FindByTitle(name); ok {
			st.focus(r)
			return recipeReply(ReplyRecipe, &r, "")
		}
		if matches, err := a.store.Search(ctx, name, 1); err == nil && len(matches) > 0 {
			r := matches[0].Recipe
			st.focus(r)
			return recipeReply(ReplyRecipe, &r, "")
		}
		return clarify(fmt.Sprintf("I couldn't find a recipe called %q.", name))
	}

	if st.Focused != nil {
		r := st.Focused.Clone()
		return recipeReply(ReplyRecipe, &r, "")
	}
	return clarify("Which recipe would you like to see?")
}

func (a *Assistant) scale(st *State, p intent.Params) Reply {
	if st.Focused == nil {
		return clarify("Which recipe should I scale? Open a recipe first.")
	}

	var (
		scaled common.Recipe
		err    error
	)
	switch {
	case p.HasServings || p.Servings != 0:
		scaled, err = recipe.Scale(*st.Focused, p.Servings)
	case p.Factor != 0:
		scaled, err = recipe.ScaleBy(*st.Focused, p.Factor)
	default:
		return clarify("How many servings would you like?")
	}
	if err != nil {
		return failure(err, "Servings must be a whole number of at least 1.")
	}

	from := st.Focused.Servings
	st.focus(scaled)
	return recipeReply(ReplyScaled, &scaled, fmt.Sprintf("Scaled from %d to %d servings.", from, scaled.Servings))
}

func (a *Assistant) frequent() Reply {
	top, ok := a.store.MostFrequent()
	if !ok {
		return analytics("You haven't saved any recipes yet.", 0)
	}
	return analytics(fmt.Sprintf("You make %q most often (%s).", top.Title, plural(top.Count, "time", "times")), top.Count)
}

func (a *Assistant) count(p intent.Params) Reply {
	name := p.Ingredient
	if name == "" && len(p.Ingredients) > 0 {
		name = p.Ingredients[0]
	}
	n, _, err := a.store.CountContaining(name)
	if err != nil {
		return clarify("Which ingredient should I count?")
	}
	return analytics(fmt.Sprintf("You have %s that use %s.", plural(n, "recipe", "recipes"), name), n)
}

func (a *Assistant) numbered(st *State, p intent.Params) Reply {
	if len(st.LastListed) == 0 {
		return clarify("There's no list to pick from. Try searching or asking for your recent recipes.")
	}
	if p.Index < 1 || p.Index > len(st.LastListed) {
		return clarify(fmt.Sprintf("Please pick a number between 1 and %d.", len(st.LastListed)))
	}

	r := st.LastListed[p.Index-1].Clone()
	if latest, err := a.store.Get(r.ID); err == nil {
		r = latest
	}
	st.focus(r)
	return recipeReply(ReplyRecipe, &r, "")
}

func clarify(msg string) Reply {
	return Reply{Kind: ReplyClarification, Message: msg}
}

func failure(err error, msg string) Reply {
	return Reply{Kind: ReplyError, Message: msg, Code: codeOf(err)}
}

func analytics(msg string, n int) Reply {
	return Reply{Kind: ReplyAnalytics, Message: msg, Count: &n}
}

func recipeReply(kind ReplyKind, r *common.Recipe, lead string) Reply {
	msg := RenderRecipe(r)
	if lead != "" {
		msg = lead + "\n\n" + msg
	}
	return Reply{Kind: kind, Message: msg, Recipe: r}
}

func listReply(st *State, msg string, recipes []common.Recipe, online bool) Reply {
	st.list(recipes)
	summaries := make([]common.RecipeSummary, len(recipes))
	for i := range recipes {
		summaries[i] = common.Summarize(&recipes[i])
	}
	return Reply{Kind: ReplyList, Message: msg, Recipes: summaries, Online: online}
}

func codeOf(err error) string {
	if ce, ok := common.AsCustomError(err); ok {
		return ce.Code
	}
	return common.ErrCodeInternalError
}
