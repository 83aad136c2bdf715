// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"net/url"
	"time"
)

// Backend names reported by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	RedisURL   string
	Prefix     string
	DefaultTTL time.Duration
}

// Open returns a Redis cache when RedisURL is set and reachable, and a memory
// cache otherwise. The second value names the backend in use.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Cache, string) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Minute
	}

	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(ctx, RedisOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			return rc, BackendRedis
		}
		logger.Warn("redis unavailable, using memory cache",
			"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
	}

	return NewMemoryCache(cfg.DefaultTTL, time.Minute), BackendMemory
}

// SanitizeRedisURL masks the password in a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
