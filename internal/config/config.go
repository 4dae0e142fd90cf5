package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	ModelName    string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	Language     string `env:"XIANXIA_LANG" envDefault:"zh"`

	SaveBackend  string        `env:"SAVE_BACKEND" envDefault:"file"`
	SaveDir      string        `env:"SAVE_DIR" envDefault:".saves"`
	SaveSlot     string        `env:"SAVE_SLOT"`
	SQLitePath   string        `env:"SAVE_SQLITE_PATH" envDefault:".saves/xianxia.db"`
	RedisAddr    string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	SaveDebounce time.Duration `env:"SAVE_DEBOUNCE" envDefault:"500ms"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE" envDefault:"xianxia.log"`
}

// Save backends understood by SaveBackend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is not set")
	}

	switch cfg.SaveBackend {
	case BackendFile, BackendSQLite, BackendRedis:
	default:
		return nil, fmt.Errorf("unknown SAVE_BACKEND %q", cfg.SaveBackend)
	}

	return &cfg, nil
}
