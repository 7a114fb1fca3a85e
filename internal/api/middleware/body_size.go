package middleware

import (
	"fmt"
	"net/http"

	"recipe-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BodySizeLimit 限制請求體大小。有 Content-Length 的請求直接檢查，
// 其餘交給 MaxBytesReader，由讀取端回報 BODY_TOO_LARGE。
func BodySizeLimit(maxSize int64) gin.HandlerFunc {
	tooLarge := common.WrapErrorMessage(common.ErrBodyTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxSize), nil)

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			common.LogWarn("請求內容過大",
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("max_size", maxSize),
				zap.String("path", c.Request.URL.Path),
			)
			abortWith(c, tooLarge)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}

// abortWith 以 CustomError 的狀態碼與代碼結束請求
func abortWith(c *gin.Context, ce *common.CustomError) {
	c.AbortWithStatusJSON(ce.Status, gin.H{"error": ce.Message, "code": ce.Code})
}
