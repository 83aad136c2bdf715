// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/avalon/internal/middleware"
	"github.com/olegiv/avalon/internal/service"
)

const (
	msgAPIKeyNotFound  = "API Key not found"
	msgAPIKeyCreated   = "API Key created successfully. Make sure to copy the key now, you won't be able to see it again."
	msgAPIKeyRotated   = "API Key regenerated successfully. Make sure to copy the new key now, you won't be able to see it again."
	msgAPIKeyUpdated   = "API Key updated successfully"
	msgAPIKeyDeleted   = "API Key deleted successfully"
	msgInvalidAPIKeyID = "Invalid API Key ID"
)

// APIKeysHandler handles API key management routes.
type APIKeysHandler struct {
	keys   *service.APIKeyService
	logger *slog.Logger
}

// NewAPIKeysHandler creates a new APIKeysHandler.
func NewAPIKeysHandler(keys *service.APIKeyService, logger *slog.Logger) *APIKeysHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeysHandler{keys: keys, logger: logger}
}

// List handles GET /api-keys.
func (h *APIKeysHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		logAndInternalError(w, h.logger, "failed to list API keys", "error", err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"apiKeys": keys})
}

// Get handles GET /api-keys/{id}.
func (h *APIKeysHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgAPIKeyNotFound)
		return
	}

	key, err := h.keys.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, msgAPIKeyNotFound, "failed to get API key")
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"apiKey": key})
}

// Create handles POST /api-keys.
func (h *APIKeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var in service.CreateAPIKeyInput
	if !decodeJSON(w, r, &in) {
		return
	}

	key, err := h.keys.Create(r.Context(), in, user.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err, msgAPIKeyNotFound, "failed to create API key")
		return
	}

	h.logger.Info("API key created", "key_id", key.ID, "service", key.Service, "created_by", user.UserID)
	writeOK(w, http.StatusCreated, map[string]any{"apiKey": key, "message": msgAPIKeyCreated})
}

// Update handles PUT /api-keys/{id}.
func (h *APIKeysHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidAPIKeyID)
		return
	}

	var in service.UpdateAPIKeyInput
	if !decodeJSON(w, r, &in) {
		return
	}

	key, err := h.keys.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, h.logger, err, msgAPIKeyNotFound, "failed to update API key")
		return
	}

	h.logger.Info("API key updated", "key_id", key.ID, "active", key.IsActive)
	writeOK(w, http.StatusOK, map[string]any{"apiKey": key, "message": msgAPIKeyUpdated})
}

// Regenerate handles POST /api-keys/{id}/regenerate.
func (h *APIKeysHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidAPIKeyID)
		return
	}

	key, err := h.keys.Regenerate(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, msgAPIKeyNotFound, "failed to regenerate API key")
		return
	}

	h.logger.Info("API key regenerated", "key_id", key.ID)
	writeOK(w, http.StatusOK, map[string]any{"apiKey": key, "message": msgAPIKeyRotated})
}

// Delete handles DELETE /api-keys/{id}.
func (h *APIKeysHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidAPIKeyID)
		return
	}

	if err := h.keys.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, msgAPIKeyNotFound, "failed to delete API key")
		return
	}

	h.logger.Info("API key deleted", "key_id", id)
	writeOK(w, http.StatusOK, map[string]any{"message": msgAPIKeyDeleted})
}
