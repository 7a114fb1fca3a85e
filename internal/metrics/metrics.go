// Package metrics 提供 Prometheus 指標
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipe_assistant"

// Metrics 應用指標，nil 接收者的方法皆為 no-op
type Metrics struct {
	registry *prometheus.Registry

	intentsClassified *prometheus.CounterVec
	modelCalls        *prometheus.CounterVec
	extractions       *prometheus.CounterVec
	storedRecipes     prometheus.Gauge
	httpDuration      *prometheus.HistogramVec
}

// New 建立指標並註冊到獨立的 registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		intentsClassified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intents_classified_total",
				Help:      "Classified utterances by intent and classification tier",
			},
			[]string{"intent", "source"},
		),
		modelCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_calls_total",
				Help:      "Text generation calls by outcome",
			},
			[]string{"outcome"},
		),
		extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Recipe text extractions by outcome",
			},
			[]string{"outcome"},
		),
		storedRecipes: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stored_recipes",
				Help:      "Number of recipes in the store",
			},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "route", "status"},
		),
	}
}

// Registry 取得 registry（測試用）
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 回傳 /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IntentClassified 記錄一次意圖分類
func (m *Metrics) IntentClassified(intent, source string) {
	if m == nil {
		return
	}
	m.intentsClassified.WithLabelValues(intent, source).Inc()
}

// ModelCall 記錄一次模型呼叫結果（ok / cache_hit / retry / failed）
func (m *Metrics) ModelCall(outcome string) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(outcome).Inc()
}

// Extraction 記錄抽取結果（structured / fallback / empty）
func (m *Metrics) Extraction(outcome string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(outcome).Inc()
}

// SetStoredRecipes 設定目前食譜數量
func (m *Metrics) SetStoredRecipes(n int) {
	if m == nil {
		return
	}
	m.storedRecipes.Set(float64(n))
}

// ObserveHTTP 記錄 HTTP 請求耗時
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
