package recipe

import (
	"net/http"
	"strings"

	"recipe-assistant/internal/api/handlers"
	"recipe-assistant/internal/core/conversation"
	"recipe-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Frequent 最常建立的食譜，附上依次數排序的前幾名
func (h *Handler) Frequent(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 5)
	if !ok {
		return
	}
	freq := h.store.TitleFrequencies()
	if len(freq) > limit {
		freq = freq[:limit]
	}

	resp := gin.H{"top": freq}
	if len(freq) > 0 {
		resp["most_frequent"] = freq[0]
	} else {
		resp["most_frequent"] = nil
	}
	c.JSON(http.StatusOK, resp)
}

// Count 含有指定食材的食譜數量（不分大小寫的子字串比對）
func (h *Handler) Count(c *gin.Context) {
	ingredient := strings.TrimSpace(c.Query("ingredient"))
	n, matched, err := h.store.CountContaining(ingredient)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ingredient": ingredient,
		"count":      n,
		"recipes":    summarize(matched),
	})
}

func render(r *common.Recipe) string {
	return conversation.RenderRecipe(r)
}
