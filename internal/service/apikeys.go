// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/store"
)

// CreateAPIKeyInput is the body of a key creation request.
type CreateAPIKeyInput struct {
	Name    string `json:"name"`
	Service string `json:"service"`
}

// UpdateAPIKeyInput changes the provided fields only.
type UpdateAPIKeyInput struct {
	Name     *string `json:"name"`
	Service  *string `json:"service"`
	IsActive *bool   `json:"isActive"`
}

// APIKeyService manages the keys services use to report errors.
type APIKeyService struct {
	queries *store.Queries
	now     func() time.Time
}

// NewAPIKeyService creates an APIKeyService.
func NewAPIKeyService(q *store.Queries) *APIKeyService {
	return &APIKeyService{queries: q, now: time.Now}
}

// Create issues a new active key. The raw key is set on the result and is
// never retrievable again.
func (s *APIKeyService) Create(ctx context.Context, in CreateAPIKeyInput, createdBy int64) (model.APIKey, error) {
	name := strings.TrimSpace(in.Name)
	svc := strings.TrimSpace(in.Service)
	if name == "" || svc == "" {
		return model.APIKey{}, invalid("Name and service are required")
	}

	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		return model.APIKey{}, fmt.Errorf("generating API key: %w", err)
	}

	now := s.now().UTC()
	row, err := s.queries.CreateAPIKey(ctx, store.CreateAPIKeyParams{
		Name:      name,
		KeyHash:   model.HashAPIKey(rawKey),
		KeyPrefix: prefix,
		Service:   svc,
		IsActive:  true,
		CreatedBy: sql.NullInt64{Int64: createdBy, Valid: createdBy > 0},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.APIKey{}, fmt.Errorf("creating API key: %w", err)
	}

	key, err := s.Get(ctx, row.ID)
	if err != nil {
		return model.APIKey{}, err
	}
	key.Key = rawKey
	return key, nil
}

// List returns every key, newest first, with its creator.
func (s *APIKeyService) List(ctx context.Context) ([]model.APIKey, error) {
	rows, err := s.queries.ListAPIKeysWithCreator(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing API keys: %w", err)
	}
	keys := make([]model.APIKey, len(rows))
	for i, r := range rows {
		keys[i] = r.ToModel()
	}
	return keys, nil
}

// Get returns one key without its secret.
func (s *APIKeyService) Get(ctx context.Context, id int64) (model.APIKey, error) {
	row, err := s.queries.GetAPIKeyWithCreator(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.APIKey{}, ErrNotFound
	}
	if err != nil {
		return model.APIKey{}, fmt.Errorf("getting API key %d: %w", id, err)
	}
	return row.ToModel(), nil
}

// Update renames, rebinds, or (de)activates a key. Deactivation applies to
// the very next request made with it.
func (s *APIKeyService) Update(ctx context.Context, id int64, in UpdateAPIKeyInput) (model.APIKey, error) {
	if in.Name == nil && in.Service == nil && in.IsActive == nil {
		return model.APIKey{}, invalid("No data provided for update")
	}

	current, err := s.queries.GetAPIKeyByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.APIKey{}, ErrNotFound
	}
	if err != nil {
		return model.APIKey{}, fmt.Errorf("getting API key %d: %w", id, err)
	}

	params := store.UpdateAPIKeyParams{
		Name:      current.Name,
		Service:   current.Service,
		IsActive:  current.IsActive,
		UpdatedAt: s.now().UTC(),
		ID:        id,
	}
	if in.Name != nil {
		if params.Name = strings.TrimSpace(*in.Name); params.Name == "" {
			return model.APIKey{}, invalid("Name cannot be empty")
		}
	}
	if in.Service != nil {
		if params.Service = strings.TrimSpace(*in.Service); params.Service == "" {
			return model.APIKey{}, invalid("Service cannot be empty")
		}
	}
	if in.IsActive != nil {
		params.IsActive = *in.IsActive
	}

	if _, err := s.queries.UpdateAPIKey(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.APIKey{}, ErrNotFound
		}
		return model.APIKey{}, fmt.Errorf("updating API key %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Regenerate replaces the secret of a key. The old raw key stops working
// immediately; the new one is set on the result.
func (s *APIKeyService) Regenerate(ctx context.Context, id int64) (model.APIKey, error) {
	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		return model.APIKey{}, fmt.Errorf("generating API key: %w", err)
	}

	_, err = s.queries.RotateAPIKey(ctx, store.RotateAPIKeyParams{
		KeyHash:   model.HashAPIKey(rawKey),
		KeyPrefix: prefix,
		UpdatedAt: s.now().UTC(),
		ID:        id,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.APIKey{}, ErrNotFound
	}
	if err != nil {
		return model.APIKey{}, fmt.Errorf("rotating API key %d: %w", id, err)
	}

	key, err := s.Get(ctx, id)
	if err != nil {
		return model.APIKey{}, err
	}
	key.Key = rawKey
	return key, nil
}

// Delete removes a key.
func (s *APIKeyService) Delete(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteAPIKey(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting API key %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
