package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.ModelName)
	assert.Equal(t, "zh", cfg.Language)
	assert.Equal(t, BackendFile, cfg.SaveBackend)
	assert.Equal(t, ".saves", cfg.SaveDir)
	assert.Equal(t, 500*time.Millisecond, cfg.SaveDebounce)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SAVE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("SAVE_DEBOUNCE", "2s")
	t.Setenv("XIANXIA_LANG", "en-GB")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.SaveBackend)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, 2*time.Second, cfg.SaveDebounce)
	assert.Equal(t, "en-GB", cfg.Language)
}

func TestLoadConfig_MissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoadConfig_UnknownBackend(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SAVE_BACKEND", "browser")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser")
}
