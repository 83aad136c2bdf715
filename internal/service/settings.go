// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/store"
	"github.com/olegiv/avalon/internal/util"
)

// SettingsInput changes the provided fields only. An empty URL clears it.
type SettingsInput struct {
	DiscordWebhookURL *string `json:"discordWebhookUrl"`
	DiscordEnabled    *bool   `json:"discordEnabled"`
}

// SettingsService reads and writes the notification settings. Reads always
// hit the database so changes apply to the next event.
type SettingsService struct {
	queries      *store.Queries
	defaults     model.Settings
	allowPrivate bool
	now          func() time.Time
}

// NewSettingsService creates a SettingsService. defaults seed the settings
// row the first time it is read; allowPrivate permits webhook URLs on
// private networks.
func NewSettingsService(q *store.Queries, defaults model.Settings, allowPrivate bool) *SettingsService {
	return &SettingsService{queries: q, defaults: defaults, allowPrivate: allowPrivate, now: time.Now}
}

// GetSettings returns the current settings, creating them from the defaults
// when none exist.
func (s *SettingsService) GetSettings(ctx context.Context) (model.Settings, error) {
	err := s.queries.InsertDefaultSettings(ctx, store.UpsertSettingsParams{
		DiscordWebhookUrl: s.defaults.DiscordWebhookURL,
		DiscordEnabled:    s.defaults.DiscordEnabled,
		UpdatedAt:         s.now().UTC(),
	})
	if err != nil {
		return model.Settings{}, fmt.Errorf("creating default settings: %w", err)
	}

	row, err := s.queries.GetSettings(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("reading settings: %w", err)
	}
	return row.ToModel(), nil
}

// Update applies in and returns the stored result.
func (s *SettingsService) Update(ctx context.Context, in SettingsInput) (model.Settings, error) {
	current, err := s.GetSettings(ctx)
	if err != nil {
		return model.Settings{}, err
	}

	if in.DiscordWebhookURL != nil {
		u := strings.TrimSpace(*in.DiscordWebhookURL)
		if u != "" {
			if err := util.ValidateWebhookURL(ctx, u, s.allowPrivate); err != nil {
				if errors.Is(err, util.ErrUnsafeWebhookURL) {
					return model.Settings{}, invalid("Invalid webhook URL: " + strings.TrimPrefix(err.Error(), util.ErrUnsafeWebhookURL.Error()+": "))
				}
				return model.Settings{}, err
			}
		}
		current.DiscordWebhookURL = u
	}
	if in.DiscordEnabled != nil {
		current.DiscordEnabled = *in.DiscordEnabled
	}

	row, err := s.queries.UpsertSettings(ctx, store.UpsertSettingsParams{
		DiscordWebhookUrl: current.DiscordWebhookURL,
		DiscordEnabled:    current.DiscordEnabled,
		UpdatedAt:         s.now().UTC(),
	})
	if err != nil {
		return model.Settings{}, fmt.Errorf("saving settings: %w", err)
	}
	return row.ToModel(), nil
}
