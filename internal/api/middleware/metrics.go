package middleware

import (
	"strconv"
	"time"

	"recipe-assistant/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 記錄每個路由的請求延遲
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
