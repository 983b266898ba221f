package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/pscheid92/syncpulse/internal/domain"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8080"`
	Port      string `env:"PORT" default:"8080"`
	RedisURL  string `env:"REDIS_URL"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	BackgroundTransitionDelay time.Duration `env:"BACKGROUND_TRANSITION_DELAY" default:"4s"`
	MediaPruneInterval        time.Duration `env:"MEDIA_PRUNE_INTERVAL" default:"24h"`
	MediaRetention            time.Duration `env:"MEDIA_RETENTION" default:"168h"` // 7 days

	BackgroundSyncAllowed  bool          `env:"BACKGROUND_SYNC_ALLOWED" default:"true"`
	BackgroundPollInterval time.Duration `env:"BACKGROUND_POLL_INTERVAL" default:"60s"`
	BackgroundPollTimeout  time.Duration `env:"BACKGROUND_POLL_TIMEOUT" default:"30s"`
	PushEnabled            bool          `env:"PUSH_ENABLED" default:"false"`

	EventRateLimit int `env:"EVENT_RATE_LIMIT" default:"50"`
	EventRateBurst int `env:"EVENT_RATE_BURST" default:"100"`

	DefaultLocale string `env:"DEFAULT_LOCALE" default:"en-US"`

	// Sessions lists the in-process sessions, space separated.
	Sessions []string `env:"SESSIONS" default:"@local:localhost"`
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

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Fallback returns the locale tuple used when persistence is unavailable.
func (c *Config) Fallback() domain.LocaleState {
	state, err := domain.ParseLocale(c.DefaultLocale)
	if err != nil {
		state, _ = domain.ParseLocale("en-US")
	}
	return state
}

func validate(cfg *Config) error {
	if cfg.BackgroundTransitionDelay <= 0 {
		return errors.New("BACKGROUND_TRANSITION_DELAY must be positive")
	}
	if cfg.MediaPruneInterval <= 0 {
		return errors.New("MEDIA_PRUNE_INTERVAL must be positive")
	}
	if cfg.MediaRetention <= 0 {
		return errors.New("MEDIA_RETENTION must be positive")
	}
	if cfg.BackgroundPollInterval < 0 || cfg.BackgroundPollTimeout < 0 {
		return errors.New("BACKGROUND_POLL_INTERVAL and BACKGROUND_POLL_TIMEOUT must not be negative")
	}
	if cfg.EventRateLimit <= 0 || cfg.EventRateBurst <= 0 {
		return errors.New("EVENT_RATE_LIMIT and EVENT_RATE_BURST must be positive")
	}
	if len(cfg.Sessions) == 0 {
		return errors.New("SESSIONS must name at least one session")
	}
	if _, err := domain.ParseLocale(cfg.DefaultLocale); err != nil {
		return fmt.Errorf("DEFAULT_LOCALE: %w", err)
	}
	return nil
}
