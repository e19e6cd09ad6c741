package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://localhost:8090")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.ValidationDebounce)
	assert.Equal(t, 5*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, "0 6 * * *", cfg.ReportWarmupCron)
	assert.True(t, cfg.CacheEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresBackend(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("BACKEND_URL", "localhost:8090")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "backend url")
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.decoaromas.cl")
	t.Setenv("APP_ENV", "production")
	t.Setenv("VALIDATION_DEBOUNCE", "300ms")
	t.Setenv("REPORT_CACHE_TTL", "0s")
	t.Setenv("LIVE_ALLOWED_ORIGINS", "https://admin.decoaromas.cl, ,https://pos.decoaromas.cl")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 300*time.Millisecond, cfg.ValidationDebounce)
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, []string{"https://admin.decoaromas.cl", "https://pos.decoaromas.cl"}, cfg.LiveAllowedOrigins)
}

func TestLoadConfigRejectsZeroDebounce(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://localhost:8090")
	t.Setenv("VALIDATION_DEBOUNCE", "0s")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "debounce")
}

func TestNewLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("component", "test"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"component":"test"`)
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "true")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
