// Package chat 對話 HTTP 介面
package chat

import (
	"net/http"
	"strings"

	"recipe-assistant/internal/api/handlers"
	"recipe-assistant/internal/core/conversation"
	"recipe-assistant/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxMessageLength 單句輸入的長度上限
const maxMessageLength = 2000

// Request 一句使用者輸入；session_id 為空時開始新的對話
type Request struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Handler 對話處理器
type Handler struct {
	assistant *conversation.Assistant
}

// NewHandler 創建對話處理器
func NewHandler(assistant *conversation.Assistant) *Handler {
	return &Handler{assistant: assistant}
}

// Chat 處理一個對話回合。助手的回覆（包含錯誤與需要澄清的情況）一律以 200 回傳，
// 回覆種類由 kind 欄位區分。
func (h *Handler) Chat(c *gin.Context) {
	var req Request
	if !handlers.BindJSON(c, &req) {
		return
	}
	if len(req.Message) > maxMessageLength {
		handlers.Error(c, common.WrapErrorMessage(common.ErrInvalidRequest, "message is too long", nil))
		return
	}

	reply := h.assistant.Handle(c.Request.Context(), strings.TrimSpace(req.SessionID), req.Message)
	common.LogDebug("對話回覆",
		zap.String("request_id", requestid.Get(c)),
		zap.String("session_id", reply.SessionID),
		zap.String("kind", string(reply.Kind)),
	)
	c.JSON(http.StatusOK, reply)
}

// End 結束對話
func (h *Handler) End(c *gin.Context) {
	if !h.assistant.Sessions().End(c.Param("session_id")) {
		handlers.Error(c, common.WrapErrorMessage(common.ErrNotFound, "session not found", nil))
		return
	}
	c.Status(http.StatusNoContent)
}
