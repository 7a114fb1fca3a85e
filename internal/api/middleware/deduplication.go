package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-assistant/internal/pkg/common"
)

// Deduplicator 擋下時間窗內重複送出的相同 POST 請求（例如連點兩次送出）
type Deduplicator struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewDeduplicator 創建去重器
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// seenRecently 記錄指紋並回報是否在時間窗內出現過
func (d *Deduplicator) seenRecently(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.lastSweep) > 10*d.window {
		for k, t := range d.seen {
			if now.Sub(t) > d.window {
				delete(d.seen, k)
			}
		}
		d.lastSweep = now
	}

	if last, ok := d.seen[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.seen[fingerprint] = now
	return false
}

// Middleware 去重中間件，只處理 POST
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	duplicate := common.WrapErrorMessage(common.ErrTooManyRequests, "duplicate request, please wait before retrying", nil)

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.Body == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			common.LogWarn("Failed to read request body", zap.Error(err))
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				abortWith(c, common.ErrBodyTooLarge)
				return
			}
			abortWith(c, common.WrapErrorMessage(common.ErrInvalidRequest, "request body could not be read", err))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := sha256.Sum256(body)
		fingerprint := c.ClientIP() + ":" + c.Request.URL.Path + ":" + hex.EncodeToString(hash[:])

		if d.seenRecently(fingerprint) {
			common.LogInfo("重複請求已略過", zap.String("path", c.Request.URL.Path), zap.String("ip", c.ClientIP()))
			abortWith(c, duplicate)
			return
		}
		c.Next()
	}
}
