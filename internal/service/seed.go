// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/avalon/internal/auth"
	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/store"
)

// Seed defaults.
const (
	DevAdminPassword = "passwordAdmin"
	TestServiceName  = "test-service"
	testKeyName      = "Test Service Key"
)

// SeedOptions controls first-start seeding.
type SeedOptions struct {
	AdminPassword string
	// TestKey also creates an API key for the test service.
	TestKey     bool
	Development bool
}

// SeedResult reports what Seed created. TestKey holds the raw key when one
// was created.
type SeedResult struct {
	AdminCreated bool
	TestKey      string
}

// Seed creates the admin account when no user exists and, if requested, a
// key for the test service when it has none.
func Seed(ctx context.Context, q *store.Queries, opts SeedOptions, logger *slog.Logger) (SeedResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var res SeedResult

	count, err := q.CountUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("counting users: %w", err)
	}

	if count == 0 {
		password := opts.AdminPassword
		if password == "" && opts.Development {
			password = DevAdminPassword
			logger.Warn("using default admin password, change it after first login")
		}
		if password == "" {
			logger.Warn("no users exist and AVALON_ADMIN_PASSWORD is not set, skipping admin creation")
		} else {
			if err := createAdmin(ctx, q, password); err != nil {
				return res, err
			}
			res.AdminCreated = true
			logger.Info("admin user created", "username", model.DefaultAdminUsername)
		}
	}

	if opts.TestKey {
		raw, err := seedTestKey(ctx, q)
		if err != nil {
			return res, err
		}
		if raw != "" {
			res.TestKey = raw
			logger.Info("test service API key created", "service", TestServiceName, "key", raw)
		}
	}

	return res, nil
}

func createAdmin(ctx context.Context, q *store.Queries, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	now := time.Now().UTC()
	if _, err := q.CreateUser(ctx, store.CreateUserParams{
		Username:     model.DefaultAdminUsername,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}
	return nil
}

func seedTestKey(ctx context.Context, q *store.Queries) (string, error) {
	keys, err := q.ListAPIKeysWithCreator(ctx)
	if err != nil {
		return "", fmt.Errorf("listing API keys: %w", err)
	}
	for _, k := range keys {
		if k.Service == TestServiceName {
			return "", nil
		}
	}

	var createdBy int64
	if admin, err := q.GetUserByUsername(ctx, model.DefaultAdminUsername); err == nil {
		createdBy = admin.ID
	}

	key, err := NewAPIKeyService(q).Create(ctx, CreateAPIKeyInput{Name: testKeyName, Service: TestServiceName}, createdBy)
	if err != nil {
		return "", fmt.Errorf("creating test service key: %w", err)
	}
	return key.Key, nil
}
