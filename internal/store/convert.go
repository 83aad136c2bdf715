// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"encoding/json"

	"github.com/olegiv/avalon/internal/model"
)

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// NullString maps nil and "" to SQL NULL.
func NullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// ToModel converts a stored row to the API representation.
func (e ErrorEvent) ToModel() model.ErrorEvent {
	ev := model.ErrorEvent{
		ID:        e.ID,
		Service:   e.Service,
		Message:   nullStringPtr(e.Message),
		Stack:     nullStringPtr(e.Stack),
		Path:      nullStringPtr(e.Path),
		Method:    nullStringPtr(e.Method),
		Level:     e.Level,
		CreatedAt: e.CreatedAt.UTC(),
	}
	if e.Metadata.Valid {
		ev.Metadata = json.RawMessage(e.Metadata.String)
	}
	return ev
}

// ToModel converts a stored user to its public form (no password hash).
func (u User) ToModel() model.User {
	return model.User{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToModel converts a stored key to its public form (no hash, no raw key).
func (k ApiKey) ToModel() model.APIKey {
	m := model.APIKey{
		ID:        k.ID,
		Name:      k.Name,
		KeyPrefix: k.KeyPrefix,
		Service:   k.Service,
		IsActive:  k.IsActive,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
	}
	if k.LastUsedAt.Valid {
		t := k.LastUsedAt.Time
		m.LastUsedAt = &t
	}
	return m
}

// ToModel converts a key row with its creator's username.
func (k ApiKeyWithCreator) ToModel() model.APIKey {
	m := k.ApiKey.ToModel()
	if k.CreatedBy.Valid {
		m.CreatedBy = &model.UserRef{ID: k.CreatedBy.Int64, Username: k.CreatorUsername.String}
	}
	return m
}

// ToModel converts the settings row.
func (s Setting) ToModel() model.Settings {
	return model.Settings{
		DiscordWebhookURL: s.DiscordWebhookUrl,
		DiscordEnabled:    s.DiscordEnabled,
		UpdatedAt:         s.UpdatedAt,
	}
}
