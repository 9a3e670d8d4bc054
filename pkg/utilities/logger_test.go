package utilities

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_DEV", "1")
	t.Setenv("LOG_MAX_AGE", "24h")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Level)
	assert.True(t, cfg.Dev)
	assert.Equal(t, 24*time.Hour, cfg.MaxAge)
}

func TestInitLevel(t *testing.T) {
	lg, err := Init(Config{Level: "ERROR"})
	require.NoError(t, err)
	assert.True(t, lg.Core().Enabled(zapcore.ErrorLevel))
	assert.False(t, lg.Core().Enabled(zapcore.WarnLevel))

	lg, err = Init(Config{})
	require.NoError(t, err)
	assert.True(t, lg.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, lg.Core().Enabled(zapcore.DebugLevel))

	_, err = Init(Config{Level: "nonsense"})
	assert.Error(t, err)
}

func TestInitWithRotatingFile(t *testing.T) {
	cfg := Config{Level: "info", File: filepath.Join(t.TempDir(), "journal.log"), MaxAge: time.Hour}
	lg, err := Init(cfg)
	require.NoError(t, err)
	lg.Info("hello")
	_ = lg.Sync()
}
