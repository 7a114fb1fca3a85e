package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-assistant/internal/metrics"
	"recipe-assistant/internal/pkg/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/ping", ok)
	r.POST("/echo", ok)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterPerClient(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	// 每 30 秒補回一個額度
	now = now.Add(40 * time.Second)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Hour)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(idleLimiterTTL + time.Minute)
	rl.Allow("b")
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "b")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimit(1, time.Minute))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", "").Code)
	w := do(r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), common.ErrCodeTooManyRequests)
}

func TestDeduplicatorRejectsRepeatedPost(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	d := NewDeduplicator(time.Second)
	d.now = func() time.Time { return now }
	r := newEngine(d.Middleware())

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/echo", `{"a":1}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/echo", `{"a":1}`).Code)
	// 內容不同不算重複
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/echo", `{"a":2}`).Code)
	// GET 不去重
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", "").Code)

	now = now.Add(2 * time.Second)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/echo", `{"a":1}`).Code)
}

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(8))

	w := do(r, http.MethodPost, "/echo", `{"text":"far too long"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "BODY_TOO_LARGE")

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/echo", `{}`).Code)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(20 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := do(r, http.MethodGet, "/slow", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeGatewayTimeout)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/fast", "").Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeInternalError)
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	m := metrics.New()
	r := newEngine(Metrics(m))

	do(r, http.MethodGet, "/ping", "")
	do(r, http.MethodGet, "/nowhere", "")

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	routes := map[string]bool{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "route" {
					routes[label.GetValue()] = true
				}
			}
		}
	}
	assert.True(t, routes["/ping"])
	assert.True(t, routes["unmatched"])
}
