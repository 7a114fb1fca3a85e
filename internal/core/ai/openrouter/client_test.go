package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-assistant/internal/core/ai/provider"
	"recipe-assistant/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.OpenRouterConfig{
		APIKey:    "sk-test",
		Model:     "test/model",
		BaseURL:   srv.URL,
		MaxTokens: 256,
		Timeout:   5 * time.Second,
	})
}

func TestGenerateSendsStopAndParsesContent(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"# Pancakes"},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`))
	})

	resp, err := c.Generate(context.Background(), provider.NewRequest("sys", "make pancakes", []string{"---"}))
	require.NoError(t, err)

	assert.Equal(t, "# Pancakes", resp.Content)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
	assert.Equal(t, "test/model", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	assert.Equal(t, []string{"---"}, got.Stop)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestGenerateReportsHTTPErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	_, err := c.Generate(context.Background(), provider.NewRequest("", "hi", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerateRejectsEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Generate(context.Background(), provider.NewRequest("", "hi", nil))
	require.Error(t, err)
}
