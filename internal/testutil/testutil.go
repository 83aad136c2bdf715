// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the collector packages.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/olegiv/avalon/internal/auth"
	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/store"
)

// TestSecret is a token signing secret that passes config validation.
const TestSecret = "test-secret-key-32-bytes-long!!!"

// TestLogger creates a logger that discards everything.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary migrated database that is closed when the test ends.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "avalon-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateUser inserts a user with the given plain-text password.
func CreateUser(t *testing.T, q *store.Queries, username, password string) store.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now().UTC()
	user, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

// CreateAPIKey inserts an API key for service and returns the raw key with its row.
func CreateAPIKey(t *testing.T, q *store.Queries, service string, active bool) (string, store.ApiKey) {
	t.Helper()

	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	now := time.Now().UTC()
	key, err := q.CreateAPIKey(context.Background(), store.CreateAPIKeyParams{
		Name:      service + " key",
		KeyHash:   model.HashAPIKey(rawKey),
		KeyPrefix: prefix,
		Service:   service,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return rawKey, key
}
