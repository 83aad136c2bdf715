// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

const testSecret = "test-secret-key-32-bytes-long!!!"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "AVALON_JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/avalon.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/avalon.db")
	}
	if cfg.ServerPort != 4000 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 4000)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.BodyLimit != 200*1024 {
		t.Errorf("BodyLimit = %d, want %d", cfg.BodyLimit, 200*1024)
	}
	if cfg.MaxErrorsPerPage != 100 || cfg.DefaultErrorsPerPage != 50 {
		t.Errorf("paging = %d/%d, want 100/50", cfg.MaxErrorsPerPage, cfg.DefaultErrorsPerPage)
	}
	if cfg.ErrorLogFile != "errors.log" {
		t.Errorf("ErrorLogFile = %q, want %q", cfg.ErrorLogFile, "errors.log")
	}
	if !cfg.SelfReport {
		t.Error("SelfReport = false, want true")
	}
	if cfg.WSWriteTimeout != 5*time.Second {
		t.Errorf("WSWriteTimeout = %v, want 5s", cfg.WSWriteTimeout)
	}
	if cfg.RetentionSchedule != "@hourly" {
		t.Errorf("RetentionSchedule = %q, want %q", cfg.RetentionSchedule, "@hourly")
	}
	if cfg.RetentionEnabled() {
		t.Error("RetentionEnabled() = true, want false")
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() = true, want false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "AVALON_JWT_SECRET", testSecret)
	setEnv(t, "AVALON_DB_PATH", "/custom/path.db")
	setEnv(t, "AVALON_SERVER_HOST", "0.0.0.0")
	setEnv(t, "AVALON_SERVER_PORT", "3000")
	setEnv(t, "AVALON_ENV", "production")
	setEnv(t, "AVALON_REDIS_URL", "redis://localhost:6379/0")
	setEnv(t, "AVALON_RETENTION_DAYS", "30")
	setEnv(t, "AVALON_DISCORD_ENABLED", "true")
	setEnv(t, "AVALON_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	setEnv(t, "AVALON_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() = false, want true")
	}
	if !cfg.RetentionEnabled() || cfg.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d", cfg.RetentionDays)
	}
	if !cfg.DiscordEnabled || cfg.DiscordWebhookURL == "" {
		t.Error("discord defaults not loaded")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_RequiredJWTSecret(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail when AVALON_JWT_SECRET is not set")
	}
}

func TestLoad_JWTSecretTooShort(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"short", "short"},
		{"31_bytes", "1234567890123456789012345678901"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "AVALON_JWT_SECRET", tt.secret)

			if _, err := Load(); err == nil {
				t.Fatalf("Load() should fail with %d-byte secret", len(tt.secret))
			}
		})
	}
}

func TestLoad_WeakSecretRejected(t *testing.T) {
	os.Clearenv()
	setEnv(t, "AVALON_JWT_SECRET", "your-secret-key-change-this-in-production")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a known default secret")
	}
}

func TestLoad_JWTSecretMinimumLength(t *testing.T) {
	os.Clearenv()
	secret32 := "12345678901234567890123456789012"
	setEnv(t, "AVALON_JWT_SECRET", secret32)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should succeed with 32-byte secret: %v", err)
	}
	if cfg.JWTSecret != secret32 {
		t.Errorf("JWTSecret = %q, want %q", cfg.JWTSecret, secret32)
	}
}

func TestLoad_DefaultPageClampedToMax(t *testing.T) {
	os.Clearenv()
	setEnv(t, "AVALON_JWT_SECRET", testSecret)
	setEnv(t, "AVALON_MAX_ERRORS_PER_PAGE", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DefaultErrorsPerPage != 20 {
		t.Errorf("DefaultErrorsPerPage = %d, want 20", cfg.DefaultErrorsPerPage)
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"production", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := Config{Env: tt.env}
			if got := cfg.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := (Config{LogLevel: tt.in}).SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	if hasMinimumEntropy("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Error("single-class secret reported as diverse")
	}
	if !hasMinimumEntropy(testSecret) {
		t.Error("three-class secret reported as weak")
	}
}
