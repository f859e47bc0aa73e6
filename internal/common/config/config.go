package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	// Port is the gateway's listen port, APIPort the API's.
	Port         string `env:"PORT" envDefault:"3000"`
	APIPort      string `env:"FOODLOOP_API_PORT" envDefault:"3001"`
	Environment  string `env:"ENV" envDefault:"development"`
	ReadTimeout  int    `env:"READ_TIMEOUT" envDefault:"10"`
	WriteTimeout int    `env:"WRITE_TIMEOUT" envDefault:"10"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	DBPath      string        `env:"FOODLOOP_DB_PATH" envDefault:"data/db/foodloop.db"`
	JWTSecret   string        `env:"FOODLOOP_JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL    time.Duration `env:"FOODLOOP_TOKEN_TTL" envDefault:"24h"`
	UploadsDir  string        `env:"FOODLOOP_UPLOADS_DIR" envDefault:"data/uploads"`
	ChatHistory int           `env:"FOODLOOP_CHAT_HISTORY" envDefault:"10"`
	BcryptCost  int           `env:"FOODLOOP_BCRYPT_COST" envDefault:"10"`

	APIURL      string   `env:"FOODLOOP_API_URL" envDefault:"http://localhost:3001"`
	CORSOrigins []string `env:"FOODLOOP_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load читает конфигурацию из переменных окружения.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ChatHistory <= 0 {
		return nil, fmt.Errorf("FOODLOOP_CHAT_HISTORY must be positive, got %d", cfg.ChatHistory)
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("FOODLOOP_BCRYPT_COST must be in [4, 31], got %d", cfg.BcryptCost)
	}
	return &cfg, nil
}

// IsProduction сообщает, включён ли production-профиль.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

func (c *Config) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}
