package config

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.repurpose.app", cfg.ServerURL)
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("REPURPOSE_SERVER_URL", "https://staging.repurpose.app")
	t.Setenv("REPURPOSE_DATA_DIR", "/tmp/repurpose-test")
	t.Setenv("REPURPOSE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://staging.repurpose.app", cfg.ServerURL)
	assert.Equal(t, "/tmp/repurpose-test", cfg.DataDir)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestConfig_Paths(t *testing.T) {
	cfg := &Config{DataDir: "/data"}

	assert.Equal(t, filepath.Join("/data", "session.db"), cfg.SessionDBPath())
	assert.Equal(t, filepath.Join("/data", "library.db"), cfg.LibraryDBPath())
	assert.Equal(t, filepath.Join("/data", "device.json"), cfg.DeviceKeyPath())
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			assert.Equal(t, tt.want, cfg.SlogLevel())
		})
	}
}
