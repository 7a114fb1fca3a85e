// Package handlers HTTP 處理器共用的回應工具
package handlers

import (
	"context"
	"errors"
	"net/http"

	"recipe-assistant/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error 將錯誤轉為 {error, code} JSON 回應
func Error(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func errorBody(err error) (int, gin.H) {
	if ce, ok := common.AsCustomError(err); ok {
		status := ce.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, gin.H{"error": ce.Message, "code": ce.Code}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, gin.H{"error": "request timeout", "code": common.ErrCodeGatewayTimeout}
	}
	return http.StatusInternalServerError, gin.H{"error": "internal error", "code": common.ErrCodeInternalError}
}

// BindJSON 解析請求 JSON，失敗時直接回應 400
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(c, common.ErrBodyTooLarge)
			return false
		}
		common.LogWarn("請求格式無效", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"code":    common.ErrCodeInvalidRequest,
			"details": err.Error(),
		})
		return false
	}
	return true
}
