// Package config загружает конфигурацию клиента из окружения
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config содержит настройки клиента.
// Значения из окружения, флаги командной строки переопределяют их.
type Config struct {
	ServerURL string `env:"REPURPOSE_SERVER_URL" envDefault:"https://api.repurpose.app"`
	DataDir   string `env:"REPURPOSE_DATA_DIR"`
	LogLevel  string `env:"REPURPOSE_LOG_LEVEL" envDefault:"warn"`
}

// Load читает конфигурацию из окружения.
// DataDir по умолчанию - каталог repurpose в пользовательском config dir.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user config dir: %w", err)
		}
		cfg.DataDir = filepath.Join(base, "repurpose")
	}

	return cfg, nil
}

// SessionDBPath - путь к bolt базе с сессией
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.DataDir, "session.db")
}

// LibraryDBPath - путь к sqlite базе локальной библиотеки
func (c *Config) LibraryDBPath() string {
	return filepath.Join(c.DataDir, "library.db")
}

// DeviceKeyPath - путь к файлу device secret для запечатывания токенов
func (c *Config) DeviceKeyPath() string {
	return filepath.Join(c.DataDir, "device.json")
}

// SlogLevel переводит текстовый уровень в slog.Level
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
