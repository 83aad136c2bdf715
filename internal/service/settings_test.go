// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/store"
	"github.com/olegiv/avalon/internal/testutil"
)

func TestSettingsService_DefaultsOnFirstRead(t *testing.T) {
	q := store.New(testutil.TestDB(t))
	svc := NewSettingsService(q, model.Settings{DiscordWebhookURL: "https://1.1.1.1/hook", DiscordEnabled: true}, false)

	s, err := svc.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://1.1.1.1/hook", s.DiscordWebhookURL)
	assert.True(t, s.DiscordEnabled)
	assert.True(t, s.WebhookActive())

	// Defaults never overwrite stored settings.
	other := NewSettingsService(q, model.Settings{}, false)
	s, err = other.GetSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, s.DiscordEnabled)
}

func TestSettingsService_Update(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	svc := NewSettingsService(q, model.Settings{}, false)

	enabled := true
	s, err := svc.Update(ctx, SettingsInput{DiscordEnabled: &enabled})
	require.NoError(t, err)
	assert.True(t, s.DiscordEnabled)
	assert.False(t, s.WebhookActive(), "enabled without URL is inactive")

	u := "https://1.1.1.1/api/webhooks/1/abc"
	s, err = svc.Update(ctx, SettingsInput{DiscordWebhookURL: &u})
	require.NoError(t, err)
	assert.Equal(t, u, s.DiscordWebhookURL)
	assert.True(t, s.DiscordEnabled)

	got, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, got.WebhookActive())

	cleared := ""
	s, err = svc.Update(ctx, SettingsInput{DiscordWebhookURL: &cleared})
	require.NoError(t, err)
	assert.Empty(t, s.DiscordWebhookURL)
}

func TestSettingsService_RejectsUnsafeURL(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(store.New(testutil.TestDB(t)), model.Settings{}, false)

	for _, u := range []string{"ftp://1.1.1.1/x", "http://127.0.0.1/hook", "http://localhost/hook"} {
		_, err := svc.Update(ctx, SettingsInput{DiscordWebhookURL: &u})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, u)
		assert.Contains(t, verr.Message, "Invalid webhook URL")
	}

	local := NewSettingsService(store.New(testutil.TestDB(t)), model.Settings{}, true)
	u := "http://127.0.0.1:9000/hook"
	_, err := local.Update(ctx, SettingsInput{DiscordWebhookURL: &u})
	assert.NoError(t, err)
}
