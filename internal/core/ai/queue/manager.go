package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrClosed 隊列已關閉
var ErrClosed = errors.New("queue manager is closed")

// Job 在 worker 中執行的生成工作
type Job func(ctx context.Context) (string, error)

// request 隊列請求
type request struct {
	ctx    context.Context
	job    Job
	result chan result
}

// result 處理結果
type result struct {
	content string
	err     error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 固定數量 worker 的模型請求隊列
type Manager struct {
	config    config.QueueConfig
	queue     chan *request
	done      chan struct{}
	wg        sync.WaitGroup
	processed int64
	closeOnce sync.Once
}

// NewManager 創建並啟動隊列管理器
func NewManager(cfg config.QueueConfig) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1
	}
	m := &Manager{
		config: cfg,
		queue:  make(chan *request, cfg.MaxSize),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	return m
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		select {
		case req := <-m.queue:
			if err := req.ctx.Err(); err != nil {
				req.result <- result{err: err}
				continue
			}
			content, err := req.job(req.ctx)
			atomic.AddInt64(&m.processed, 1)
			req.result <- result{content: content, err: err}
		case <-m.done:
			common.LogDebug("queue worker stopped", zap.Int("worker", id))
			return
		}
	}
}

// Submit 將工作加入隊列並等待結果，隊列已滿時立即回傳 ErrTooManyRequests
func (m *Manager) Submit(ctx context.Context, job Job) (string, error) {
	req := &request{ctx: ctx, job: job, result: make(chan result, 1)}

	select {
	case <-m.done:
		return "", ErrClosed
	default:
	}

	select {
	case m.queue <- req:
	case <-m.done:
		return "", ErrClosed
	default:
		common.LogWarn("Request queue full", zap.Int("max_queue_size", m.config.MaxSize))
		return "", common.WrapErrorMessage(common.ErrTooManyRequests, "generation queue is full", nil)
	}

	select {
	case r := <-req.result:
		return r.content, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close 停止所有 worker
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}
