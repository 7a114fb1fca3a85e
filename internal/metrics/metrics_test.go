package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	m := New()

	m.IntentClassified("search", "rule")
	m.IntentClassified("search", "rule")
	m.ModelCall("failed")
	m.SetStoredRecipes(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.intentsClassified.WithLabelValues("search", "rule")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCalls.WithLabelValues("failed")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.storedRecipes))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IntentClassified("search", "rule")
		m.ModelCall("ok")
		m.Extraction("empty")
		m.SetStoredRecipes(1)
		m.ObserveHTTP("GET", "/health", "200", time.Millisecond)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Extraction("structured")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `recipe_assistant_extractions_total{outcome="structured"} 1`)
}
