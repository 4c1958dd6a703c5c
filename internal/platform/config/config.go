package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv        string `env:"APP_ENV" default:"development"`
	Port          string `env:"PORT" default:"8080"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL"`
	SessionSecret string `env:"SESSION_SECRET"`
	LogLevel      string `env:"LOG_LEVEL" default:"info"`
	LogFormat     string `env:"LOG_FORMAT" default:"text"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" default:"true"`

	SessionMaxAge  time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" default:"30m"`

	VoteWriteTimeout time.Duration `env:"VOTE_WRITE_TIMEOUT" default:"10s"`
	VoteRateLimit    float64       `env:"VOTE_RATE_LIMIT" default:"5"` // requests per second per IP
	VoteRateBurst    int           `env:"VOTE_RATE_BURST" default:"10"`

	GatewayBreakerFailures int           `env:"GATEWAY_BREAKER_FAILURES" default:"5"`
	GatewayBreakerDelay    time.Duration `env:"GATEWAY_BREAKER_DELAY" default:"30s"`
}

// IsProduction reports whether the server runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

const minSessionSecretLen = 32

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":   cfg.DatabaseURL,
		"SESSION_SECRET": cfg.SessionSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}
	if cfg.VoteRateLimit <= 0 || cfg.VoteRateBurst < 1 {
		return errors.New("VOTE_RATE_LIMIT and VOTE_RATE_BURST must be positive")
	}
	if cfg.GatewayBreakerFailures < 1 {
		return errors.New("GATEWAY_BREAKER_FAILURES must be at least 1")
	}
	if cfg.VoteWriteTimeout <= 0 {
		return errors.New("VOTE_WRITE_TIMEOUT must be positive")
	}

	return nil
}

// AdminConfig is the subset of settings the admin CLI needs.
type AdminConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"warn"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`
}

// LoadAdmin reads the admin CLI settings. DATABASE_URL may be left empty here
// and supplied by flag instead.
func LoadAdmin() (*AdminConfig, error) {
	_ = godotenv.Load()

	var cfg AdminConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	return &cfg, nil
}
