// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/avalon/internal/middleware"
	"github.com/olegiv/avalon/internal/service"
	"github.com/olegiv/avalon/internal/util"
)

// AuthHandler handles login and the caller's own profile.
type AuthHandler struct {
	accounts   *service.AccountService
	protection *middleware.LoginProtection
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. protection may be nil.
func NewAuthHandler(accounts *service.AccountService, protection *middleware.LoginProtection, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{accounts: accounts, protection: protection, logger: logger}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if h.protection != nil && req.Username != "" {
		if locked, remaining := h.protection.IsAccountLocked(req.Username); locked {
			writeError(w, http.StatusTooManyRequests, lockedMessage(remaining))
			return
		}
	}

	result, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.logger.Warn("failed login attempt", "username", req.Username, "ip", util.ClientIP(r))
		if h.protection != nil {
			if locked, d := h.protection.RecordFailedAttempt(req.Username); locked {
				writeError(w, http.StatusTooManyRequests, lockedMessage(d))
				return
			}
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err, "User not found", "login failed")
		return
	}

	if h.protection != nil {
		h.protection.RecordSuccessfulLogin(req.Username)
	}
	h.logger.Info("user logged in", "user_id", result.User.ID, "username", result.User.Username)

	writeOK(w, http.StatusOK, map[string]any{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      result.User,
	})
}

func lockedMessage(d time.Duration) string {
	return fmt.Sprintf("Too many failed login attempts. Try again in %s.", d.Round(time.Second))
}

// Verify handles GET /auth/verify. RequireUser has already checked the token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"user": identity})
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	user, err := h.accounts.Profile(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err, "User not found", "failed to load profile")
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"user": user})
}

// UpdateProfile handles PUT /auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var in service.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), identity.UserID, in)
	if err != nil {
		writeServiceError(w, h.logger, err, "User not found", "failed to update profile")
		return
	}

	h.logger.Info("profile updated", "user_id", user.ID)
	writeOK(w, http.StatusOK, map[string]any{"user": user})
}
