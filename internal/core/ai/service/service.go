package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-assistant/internal/core/ai"
	"recipe-assistant/internal/core/ai/cache"
	"recipe-assistant/internal/core/ai/provider"
	"recipe-assistant/internal/core/ai/queue"
	"recipe-assistant/internal/metrics"
	"recipe-assistant/internal/pkg/common"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// maxTries 第一次呼叫加上一次重試
const maxTries = 2

// Service AI 服務，實作 ai.TextGenerator
type Service struct {
	provider  provider.Provider
	cache     cache.Cache
	queue     *queue.Manager
	metrics   *metrics.Metrics
	timeout   time.Duration
	retryWait time.Duration
}

var _ ai.TextGenerator = (*Service)(nil)

// Option 服務選項
type Option func(*Service)

// WithCache 啟用回應快取
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithQueue 經由隊列限制同時進行的模型請求
func WithQueue(q *queue.Manager) Option {
	return func(s *Service) { s.queue = q }
}

// WithMetrics 記錄模型呼叫指標
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRetryWait 設定重試前的等待時間
func WithRetryWait(d time.Duration) Option {
	return func(s *Service) { s.retryWait = d }
}

// NewService 創建 AI 服務
func NewService(p provider.Provider, opts ...Option) *Service {
	s := &Service{
		provider:  p,
		timeout:   p.GetTimeout(),
		retryWait: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	return s
}

// Generate 產生文字；逾時或失敗時重試一次，仍失敗則回傳 ErrModelUnavailable
func (s *Service) Generate(ctx context.Context, p ai.Prompt) (string, error) {
	// 統一 prompt 空白，確保快取 key 一致
	key := cache.Key(normalize(p.System), normalize(p.User), strings.Join(p.Stop, "\x01"))

	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key); err == nil && val != "" {
			s.metrics.ModelCall("cache_hit")
			return val, nil
		}
	}

	var (
		content string
		err     error
	)
	if s.queue != nil {
		content, err = s.queue.Submit(ctx, func(ctx context.Context) (string, error) {
			return s.generateWithRetry(ctx, p)
		})
	} else {
		content, err = s.generateWithRetry(ctx, p)
	}
	if err != nil {
		s.metrics.ModelCall("failed")
		if errors.Is(err, common.ErrTooManyRequests) {
			return "", err
		}
		return "", common.WrapError(common.ErrModelUnavailable, err)
	}

	s.metrics.ModelCall("ok")
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, content); err != nil {
			common.LogWarn("快取寫入失敗", zap.Error(err))
		}
	}
	return content, nil
}

func (s *Service) generateWithRetry(ctx context.Context, p ai.Prompt) (string, error) {
	attempt := 0
	operation := func() (string, error) {
		attempt++
		if attempt > 1 {
			s.metrics.ModelCall("retry")
		}
		start := time.Now()
		content, err := s.callOnce(ctx, p)
		common.LogAICall(s.provider.GetModel(), time.Since(start), attempt, err)
		if err != nil && ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		return content, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.retryWait)),
		backoff.WithMaxTries(maxTries),
	)
}

func (s *Service) callOnce(ctx context.Context, p ai.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.provider.Generate(ctx, provider.NewRequest(p.System, p.User, p.Stop))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("model call timed out after %s: %w", s.timeout, err)
		}
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("empty AI response")
	}
	return strings.TrimSpace(resp.Content), nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
