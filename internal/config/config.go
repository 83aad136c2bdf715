// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the collector configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must never sign tokens.
var knownWeakSecrets = []string{
	"your-secret-key-change-this-in-production",
	"change-me-to-32-byte-secret-key!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"AVALON_DB_PATH" envDefault:"./data/avalon.db"`
	JWTSecret  string `env:"AVALON_JWT_SECRET,required"`
	ServerHost string `env:"AVALON_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"AVALON_SERVER_PORT" envDefault:"4000"`
	Env        string `env:"AVALON_ENV" envDefault:"development"`
	LogLevel   string `env:"AVALON_LOG_LEVEL" envDefault:"info"`

	// Ingestion
	BodyLimit            int64   `env:"AVALON_BODY_LIMIT" envDefault:"204800"` // 200 KiB
	MaxErrorsPerPage     int     `env:"AVALON_MAX_ERRORS_PER_PAGE" envDefault:"100"`
	DefaultErrorsPerPage int     `env:"AVALON_DEFAULT_ERRORS_PER_PAGE" envDefault:"50"`
	ReportRate           float64 `env:"AVALON_REPORT_RATE" envDefault:"50"` // requests per second per API key
	ReportBurst          int     `env:"AVALON_REPORT_BURST" envDefault:"100"`
	ErrorLogFile         string  `env:"AVALON_ERROR_LOG_FILE" envDefault:"errors.log"`
	SelfReport           bool    `env:"AVALON_SELF_REPORT" envDefault:"true"`

	// Discord defaults, copied into the settings row the first time it is created
	DiscordWebhookURL string `env:"AVALON_DISCORD_WEBHOOK_URL"`
	DiscordEnabled    bool   `env:"AVALON_DISCORD_ENABLED" envDefault:"false"`
	WebhookWorkers    int    `env:"AVALON_WEBHOOK_WORKERS" envDefault:"2"`

	// Realtime
	WSWriteTimeout time.Duration `env:"AVALON_WS_WRITE_TIMEOUT" envDefault:"5s"`
	AllowedOrigins []string      `env:"AVALON_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Cache configuration
	RedisURL    string `env:"AVALON_REDIS_URL"` // Optional Redis URL for the stats cache
	CachePrefix string `env:"AVALON_CACHE_PREFIX" envDefault:"avalon:"`
	CacheTTL    int    `env:"AVALON_CACHE_TTL" envDefault:"60"` // seconds

	// Retention
	RetentionDays     int    `env:"AVALON_RETENTION_DAYS" envDefault:"0"` // 0 keeps events forever
	RetentionSchedule string `env:"AVALON_RETENTION_SCHEDULE" envDefault:"@hourly"`

	// Seeding
	AdminPassword string `env:"AVALON_ADMIN_PASSWORD"`
	DoSeed        bool   `env:"AVALON_DO_SEED" envDefault:"false"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// RetentionEnabled reports whether old events are purged on a schedule.
func (c Config) RetentionEnabled() bool {
	return c.RetentionDays > 0
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinJWTSecretLength is the minimum accepted length of the token signing secret.
const MinJWTSecretLength = 32

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return nil, fmt.Errorf("AVALON_JWT_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinJWTSecretLength, len(cfg.JWTSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.JWTSecret == weak {
			return nil, errors.New("AVALON_JWT_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.JWTSecret) {
		slog.Warn("AVALON_JWT_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if cfg.MaxErrorsPerPage <= 0 {
		return nil, fmt.Errorf("AVALON_MAX_ERRORS_PER_PAGE must be positive, got %d", cfg.MaxErrorsPerPage)
	}
	if cfg.DefaultErrorsPerPage <= 0 || cfg.DefaultErrorsPerPage > cfg.MaxErrorsPerPage {
		cfg.DefaultErrorsPerPage = cfg.MaxErrorsPerPage
	}

	if !cfg.IsDevelopment() && cfg.AdminPassword == "" {
		slog.Warn("AVALON_ADMIN_PASSWORD is not set; the admin user will not be seeded in production")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	classes := []string{
		"abcdefghijklmnopqrstuvwxyz",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"0123456789",
		"!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\",
	}
	n := 0
	for _, class := range classes {
		if strings.ContainsAny(s, class) {
			n++
		}
	}
	return n >= 3
}
