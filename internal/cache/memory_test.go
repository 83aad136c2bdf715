// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, 0)
	defer func() { _ = c.Close() }()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, 0)
	defer func() { _ = c.Close() }()

	v := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", v, 0))
	v[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'y'

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, 0)
	defer func() { _ = c.Close() }()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "default", []byte("2"), 0))

	now = now.Add(2 * time.Second)
	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = c.Get(ctx, "default")
	assert.NoError(t, err)

	c.removeExpired()
	assert.Equal(t, 1, c.Len())

	now = now.Add(time.Minute)
	c.removeExpired()
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Closed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), ErrClosed)
	assert.ErrorIs(t, c.Delete(ctx, "k"), ErrClosed)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Millisecond)
	defer func() { _ = c.Close() }()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i%5))
			_ = c.Set(ctx, key, []byte{byte(i)}, 0)
			_, _ = c.Get(ctx, key)
			_ = c.Delete(ctx, key)
		}()
	}
	wg.Wait()
}

type stats struct {
	Total   int64            `json:"total"`
	ByLevel map[string]int64 `json:"byLevel"`
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, 0)
	defer func() { _ = c.Close() }()

	_, err := GetJSON[stats](ctx, c, "stats")
	assert.ErrorIs(t, err, ErrMiss)

	in := stats{Total: 3, ByLevel: map[string]int64{"error": 2, "info": 1}}
	require.NoError(t, SetJSON(ctx, c, "stats", in, 0))

	out, err := GetJSON[stats](ctx, c, "stats")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	require.NoError(t, c.Set(ctx, "broken", []byte("{"), 0))
	_, err = GetJSON[stats](ctx, c, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
