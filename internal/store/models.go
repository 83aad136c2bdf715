// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ApiKey struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	KeyHash    string        `json:"key_hash"`
	KeyPrefix  string        `json:"key_prefix"`
	Service    string        `json:"service"`
	IsActive   bool          `json:"is_active"`
	LastUsedAt sql.NullTime  `json:"last_used_at"`
	CreatedBy  sql.NullInt64 `json:"created_by"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type ErrorEvent struct {
	ID        string         `json:"id"`
	Service   string         `json:"service"`
	Message   sql.NullString `json:"message"`
	Stack     sql.NullString `json:"stack"`
	Path      sql.NullString `json:"path"`
	Method    sql.NullString `json:"method"`
	Level     string         `json:"level"`
	Metadata  sql.NullString `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

type Setting struct {
	ID                int64     `json:"id"`
	DiscordWebhookUrl string    `json:"discord_webhook_url"`
	DiscordEnabled    bool      `json:"discord_enabled"`
	UpdatedAt         time.Time `json:"updated_at"`
}
