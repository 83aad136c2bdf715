// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/service"
)

// SettingsHandler reads and updates the notification settings.
type SettingsHandler struct {
	settings *service.SettingsService
	logger   *slog.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{settings: settings, logger: logger}
}

// settingsResponse flattens the settings next to the status field.
type settingsResponse struct {
	Status string `json:"status"`
	model.Settings
}

// Get handles GET /settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.GetSettings(r.Context())
	if err != nil {
		logAndInternalError(w, h.logger, "failed to fetch settings", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Status: statusOK, Settings: s})
}

// Update handles PUT /settings.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.SettingsInput
	if !decodeJSON(w, r, &in) {
		return
	}

	s, err := h.settings.Update(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err, "Settings not found", "failed to update settings")
		return
	}

	h.logger.Info("settings updated", "discord_enabled", s.DiscordEnabled, "webhook_configured", s.DiscordWebhookURL != "")
	writeJSON(w, http.StatusOK, settingsResponse{Status: statusOK, Settings: s})
}
