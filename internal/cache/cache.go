// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides a small byte-value cache with an in-memory and a
// Redis backend, plus JSON helpers for typed values.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Cache is implemented by every backend. Implementations are safe for
// concurrent use.
type Cache interface {
	// Get returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value. A zero ttl selects the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Cache errors.
var (
	ErrMiss   = errors.New("cache miss")
	ErrClosed = errors.New("cache closed")
)

// GetJSON loads key and decodes it into a T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, error) {
	var v T
	raw, err := c.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decoding cached %q: %w", key, err)
	}
	return v, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q for cache: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}
