// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared by the collector packages:
// error events, service API keys, users, and notification settings.
package model

import (
	"time"
)

// DefaultAdminUsername is the account created on first start.
const DefaultAdminUsername = "admin"

// User is a dashboard account.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity is the authenticated user carried by a session token.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// ServiceIdentity is the authenticated reporter bound to an API key.
type ServiceIdentity struct {
	KeyID   int64
	Name    string
	Service string
}

// Settings holds the mutable notification configuration.
type Settings struct {
	DiscordWebhookURL string    `json:"discordWebhookUrl"`
	DiscordEnabled    bool      `json:"discordEnabled"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// WebhookActive reports whether webhook notifications should be sent.
func (s Settings) WebhookActive() bool {
	return s.DiscordEnabled && s.DiscordWebhookURL != ""
}
