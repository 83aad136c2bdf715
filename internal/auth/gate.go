// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/store"
)

// ErrUnauthenticated is returned for missing, unknown, inactive, or invalid credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// lastUsedTimeout bounds the detached last-used update.
const lastUsedTimeout = 5 * time.Second

// KeyStore is the part of the store the gate needs for service keys.
type KeyStore interface {
	GetAPIKeyByHash(ctx context.Context, keyHash string) (store.ApiKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, arg store.UpdateAPIKeyLastUsedParams) error
}

// Gate resolves raw credentials to identities.
type Gate struct {
	keys   KeyStore
	tokens *TokenIssuer
	logger *slog.Logger
	now    func() time.Time

	pending sync.WaitGroup
}

// NewGate creates a gate backed by keys for API keys and tokens for sessions.
func NewGate(keys KeyStore, tokens *TokenIssuer, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		keys:   keys,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// Tokens returns the issuer used for session tokens.
func (g *Gate) Tokens() *TokenIssuer {
	return g.tokens
}

// ResolveServiceIdentity looks up a raw API key. Unknown and inactive keys
// are indistinguishable to the caller. On success the key's last-used time
// is updated in the background.
func (g *Gate) ResolveServiceIdentity(ctx context.Context, rawKey string) (model.ServiceIdentity, error) {
	if rawKey == "" {
		return model.ServiceIdentity{}, ErrUnauthenticated
	}

	key, err := g.keys.GetAPIKeyByHash(ctx, model.HashAPIKey(rawKey))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			g.logger.Error("failed to look up API key", "error", err)
		}
		return model.ServiceIdentity{}, ErrUnauthenticated
	}
	if !key.IsActive {
		return model.ServiceIdentity{}, ErrUnauthenticated
	}

	g.touch(key.ID)

	return model.ServiceIdentity{KeyID: key.ID, Name: key.Name, Service: key.Service}, nil
}

// ResolveUserIdentity verifies a raw session token.
func (g *Gate) ResolveUserIdentity(rawToken string) (model.Identity, error) {
	return g.tokens.Parse(rawToken)
}

// touch records the key's last use without blocking the caller.
func (g *Gate) touch(keyID int64) {
	g.pending.Add(1)
	go func() {
		defer g.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), lastUsedTimeout)
		defer cancel()

		err := g.keys.UpdateAPIKeyLastUsed(ctx, store.UpdateAPIKeyLastUsedParams{
			LastUsedAt: sql.NullTime{Time: g.now().UTC(), Valid: true},
			ID:         keyID,
		})
		if err != nil {
			g.logger.Error("failed to update API key last use", "key_id", keyID, "error", err)
		}
	}()
}

// Wait blocks until all background last-used updates have finished.
func (g *Gate) Wait() {
	g.pending.Wait()
}
