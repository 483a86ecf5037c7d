package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required,notEmpty"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Assistant backend
	DefaultServerURL string        `env:"DEFAULT_SERVER_URL" envDefault:"https://jalalkhan123-agent-backend.hf.space"`
	ServerPort       int           `env:"SERVER_PORT" envDefault:"8000"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"90s"`

	// Platform theme used when a chat never picked one
	SystemTheme string `env:"SYSTEM_THEME" envDefault:"light"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Telegram logging
	LogTelegramChatID    int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError        int   `env:"LOG_TOPIC_ERROR"`
	LogTopicRegistration int   `env:"LOG_TOPIC_REGISTRATION"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.DefaultServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("parse config: DEFAULT_SERVER_URL %q is not an absolute url", c.DefaultServerURL)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("parse config: SERVER_PORT %d out of range", c.ServerPort)
	}
	if c.SystemTheme != "light" && c.SystemTheme != "dark" {
		return fmt.Errorf("parse config: SYSTEM_THEME must be light or dark, got %q", c.SystemTheme)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = RequestTimeout
	}
	return nil
}

// PersistentStorage reports whether key-value data survives restarts.
func (c *Config) PersistentStorage() bool {
	return c.DatabaseURL != ""
}
