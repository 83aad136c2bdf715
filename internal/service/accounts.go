// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/avalon/internal/auth"
	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/store"
)

// MinPasswordLength applies to new passwords set through the profile.
const MinPasswordLength = 8

// ErrInvalidCredentials is returned by Login for any username or password mismatch.
var ErrInvalidCredentials = errors.New("invalid credentials")

// LoginResult is a successful login.
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

// ProfileInput changes the caller's username, password, or both.
type ProfileInput struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AccountService handles dashboard logins and profile changes.
type AccountService struct {
	queries *store.Queries
	tokens  *auth.TokenIssuer
	logger  *slog.Logger
	now     func() time.Time
}

// NewAccountService creates an AccountService.
func NewAccountService(q *store.Queries, tokens *auth.TokenIssuer, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{queries: q, tokens: tokens, logger: logger, now: time.Now}
}

// Login checks the credentials and issues a session token.
func (s *AccountService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username == "" || password == "" {
		return LoginResult{}, invalid("Username and password are required")
	}

	user, err := s.queries.GetUserByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		auth.BurnPasswordCheck(password)
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("checking password: %w", err)
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	token, expires, err := s.tokens.Issue(model.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issuing token: %w", err)
	}
	return LoginResult{Token: token, ExpiresAt: expires, User: user.ToModel()}, nil
}

func (s *AccountService) rehash(ctx context.Context, user store.User, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Warn("failed to rehash password", "user_id", user.ID, "error", err)
		return
	}
	_, err = s.queries.UpdateUser(ctx, store.UpdateUserParams{
		Username:     user.Username,
		PasswordHash: hash,
		UpdatedAt:    s.now().UTC(),
		ID:           user.ID,
	})
	if err != nil {
		s.logger.Warn("failed to store rehashed password", "user_id", user.ID, "error", err)
	}
}

// Profile returns the user behind an identity.
func (s *AccountService) Profile(ctx context.Context, userID int64) (model.User, error) {
	user, err := s.queries.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("getting user %d: %w", userID, err)
	}
	return user.ToModel(), nil
}

// UpdateProfile renames the user and/or changes the password. A password
// change requires the current password.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" && in.NewPassword == "" {
		return model.User{}, invalid("No data provided for update")
	}
	if in.NewPassword != "" && in.CurrentPassword == "" {
		return model.User{}, invalid("Current password is required to change password")
	}

	user, err := s.queries.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, invalid("User not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("getting user %d: %w", userID, err)
	}

	params := store.UpdateUserParams{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		UpdatedAt:    s.now().UTC(),
		ID:           user.ID,
	}

	if in.NewPassword != "" {
		ok, err := auth.CheckPassword(in.CurrentPassword, user.PasswordHash)
		if err != nil {
			return model.User{}, fmt.Errorf("checking password: %w", err)
		}
		if !ok {
			return model.User{}, invalid("Current password is incorrect")
		}
		if len(in.NewPassword) < MinPasswordLength {
			return model.User{}, invalid(fmt.Sprintf("New password must be at least %d characters", MinPasswordLength))
		}
		if params.PasswordHash, err = auth.HashPassword(in.NewPassword); err != nil {
			return model.User{}, fmt.Errorf("hashing password: %w", err)
		}
	}

	if in.Username != "" && in.Username != user.Username {
		_, err := s.queries.GetUserByUsername(ctx, in.Username)
		switch {
		case err == nil:
			return model.User{}, invalid("Username already taken")
		case !errors.Is(err, sql.ErrNoRows):
			return model.User{}, fmt.Errorf("checking username: %w", err)
		}
		params.Username = in.Username
	}

	updated, err := s.queries.UpdateUser(ctx, params)
	if err != nil {
		return model.User{}, fmt.Errorf("updating user %d: %w", userID, err)
	}
	return updated.ToModel(), nil
}
