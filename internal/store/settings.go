// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const settingsColumns = `id, discord_webhook_url, discord_enabled, updated_at`

const getSettings = `-- name: GetSettings :one
SELECT ` + settingsColumns + ` FROM settings WHERE id = 1`

func (q *Queries) GetSettings(ctx context.Context) (Setting, error) {
	var i Setting
	err := q.db.QueryRowContext(ctx, getSettings).Scan(
		&i.ID,
		&i.DiscordWebhookUrl,
		&i.DiscordEnabled,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertSettings = `-- name: UpsertSettings :exec
INSERT INTO settings (id, discord_webhook_url, discord_enabled, updated_at)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    discord_webhook_url = excluded.discord_webhook_url,
    discord_enabled = excluded.discord_enabled,
    updated_at = excluded.updated_at`

type UpsertSettingsParams struct {
	DiscordWebhookUrl string    `json:"discord_webhook_url"`
	DiscordEnabled    bool      `json:"discord_enabled"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (q *Queries) UpsertSettings(ctx context.Context, arg UpsertSettingsParams) (Setting, error) {
	if _, err := q.db.ExecContext(ctx, upsertSettings,
		arg.DiscordWebhookUrl,
		arg.DiscordEnabled,
		arg.UpdatedAt,
	); err != nil {
		return Setting{}, err
	}
	return q.GetSettings(ctx)
}

const insertDefaultSettings = `-- name: InsertDefaultSettings :exec
INSERT OR IGNORE INTO settings (id, discord_webhook_url, discord_enabled, updated_at)
VALUES (1, ?, ?, ?)`

// InsertDefaultSettings creates the settings row unless it already exists.
func (q *Queries) InsertDefaultSettings(ctx context.Context, arg UpsertSettingsParams) error {
	_, err := q.db.ExecContext(ctx, insertDefaultSettings,
		arg.DiscordWebhookUrl,
		arg.DiscordEnabled,
		arg.UpdatedAt,
	)
	return err
}
