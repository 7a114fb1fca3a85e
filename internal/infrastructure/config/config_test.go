package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp 切換到沒有 .env 的暫存目錄
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaultsWithoutEnvFile(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, 60*time.Second, cfg.OpenRouter.Timeout)
	assert.Equal(t, 5, cfg.Store.SearchLimit)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.False(t, cfg.Embedding.Enabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-test-123456789")
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("STORE_PATH", "/tmp/recipes.json")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk-test-123456789", cfg.OpenRouter.APIKey)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/recipes.json", cfg.Store.Path)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestRequestTimeoutCoversModelRetry(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*cfg.OpenRouter.Timeout+cfg.OpenRouter.RetryWait, cfg.OpenRouter.CallBudget())
	assert.GreaterOrEqual(t, cfg.TurnBudget(), 2*cfg.OpenRouter.CallBudget())
	assert.Equal(t, cfg.TurnBudget()+requestSlack, cfg.Server.RequestTimeout)
	assert.Greater(t, cfg.Server.WriteTimeout, cfg.Server.RequestTimeout)
}

func TestLoadConfigRejectsShortRequestTimeout(t *testing.T) {
	chdirTemp(t)
	t.Setenv("APP_SERVER_REQUEST_TIMEOUT", "75s")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shorter than one conversation turn")
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORE_BACKEND", "sqlite")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", MaskAPIKey("short"))
	assert.Equal(t, "sk-t...6789", MaskAPIKey("sk-test-123456789"))
}
