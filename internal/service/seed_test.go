// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/avalon/internal/auth"
	"github.com/olegiv/avalon/internal/store"
	"github.com/olegiv/avalon/internal/testutil"
)

func TestSeed_Development(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))

	res, err := Seed(ctx, q, SeedOptions{Development: true, TestKey: true}, testutil.TestLogger())
	require.NoError(t, err)
	assert.True(t, res.AdminCreated)
	assert.Regexp(t, rawKeyPattern, res.TestKey)

	admin, err := q.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	ok, err := auth.CheckPassword(DevAdminPassword, admin.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := q.ListAPIKeysWithCreator(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, TestServiceName, keys[0].Service)
	assert.Equal(t, admin.ID, keys[0].CreatedBy.Int64)

	// Seeding again changes nothing.
	res, err = Seed(ctx, q, SeedOptions{Development: true, TestKey: true}, testutil.TestLogger())
	require.NoError(t, err)
	assert.False(t, res.AdminCreated)
	assert.Empty(t, res.TestKey)
}

func TestSeed_ProductionRequiresPassword(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))

	res, err := Seed(ctx, q, SeedOptions{}, testutil.TestLogger())
	require.NoError(t, err)
	assert.False(t, res.AdminCreated)

	n, err := q.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err = Seed(ctx, q, SeedOptions{AdminPassword: "a-strong-password"}, testutil.TestLogger())
	require.NoError(t, err)
	assert.True(t, res.AdminCreated)
	assert.Empty(t, res.TestKey)
}
