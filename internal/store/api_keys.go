// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const apiKeyColumns = `id, name, key_hash, key_prefix, service, is_active, last_used_at, created_by, created_at, updated_at`

func scanApiKey(row interface{ Scan(...any) error }) (ApiKey, error) {
	var i ApiKey
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.KeyHash,
		&i.KeyPrefix,
		&i.Service,
		&i.IsActive,
		&i.LastUsedAt,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createAPIKey = `-- name: CreateAPIKey :execresult
INSERT INTO api_keys (name, key_hash, key_prefix, service, is_active, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type CreateAPIKeyParams struct {
	Name      string        `json:"name"`
	KeyHash   string        `json:"key_hash"`
	KeyPrefix string        `json:"key_prefix"`
	Service   string        `json:"service"`
	IsActive  bool          `json:"is_active"`
	CreatedBy sql.NullInt64 `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (q *Queries) CreateAPIKey(ctx context.Context, arg CreateAPIKeyParams) (ApiKey, error) {
	result, err := q.db.ExecContext(ctx, createAPIKey,
		arg.Name,
		arg.KeyHash,
		arg.KeyPrefix,
		arg.Service,
		arg.IsActive,
		arg.CreatedBy,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return ApiKey{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return ApiKey{}, err
	}
	return q.GetAPIKeyByID(ctx, id)
}

const getAPIKeyByHash = `-- name: GetAPIKeyByHash :one
SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = ?`

func (q *Queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (ApiKey, error) {
	return scanApiKey(q.db.QueryRowContext(ctx, getAPIKeyByHash, keyHash))
}

const getAPIKeyByID = `-- name: GetAPIKeyByID :one
SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = ?`

func (q *Queries) GetAPIKeyByID(ctx context.Context, id int64) (ApiKey, error) {
	return scanApiKey(q.db.QueryRowContext(ctx, getAPIKeyByID, id))
}

// ApiKeyWithCreator is an API key joined with its creator's username.
type ApiKeyWithCreator struct {
	ApiKey
	CreatorUsername sql.NullString `json:"creator_username"`
}

const listAPIKeysWithCreator = `-- name: ListAPIKeysWithCreator :many
SELECT k.id, k.name, k.key_hash, k.key_prefix, k.service, k.is_active, k.last_used_at,
       k.created_by, k.created_at, k.updated_at, u.username
FROM api_keys k
LEFT JOIN users u ON u.id = k.created_by
ORDER BY k.created_at DESC, k.id DESC`

func (q *Queries) ListAPIKeysWithCreator(ctx context.Context) ([]ApiKeyWithCreator, error) {
	rows, err := q.db.QueryContext(ctx, listAPIKeysWithCreator)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []ApiKeyWithCreator{}
	for rows.Next() {
		var i ApiKeyWithCreator
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.KeyHash,
			&i.KeyPrefix,
			&i.Service,
			&i.IsActive,
			&i.LastUsedAt,
			&i.CreatedBy,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.CreatorUsername,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getAPIKeyWithCreator = `-- name: GetAPIKeyWithCreator :one
SELECT k.id, k.name, k.key_hash, k.key_prefix, k.service, k.is_active, k.last_used_at,
       k.created_by, k.created_at, k.updated_at, u.username
FROM api_keys k
LEFT JOIN users u ON u.id = k.created_by
WHERE k.id = ?`

func (q *Queries) GetAPIKeyWithCreator(ctx context.Context, id int64) (ApiKeyWithCreator, error) {
	var i ApiKeyWithCreator
	err := q.db.QueryRowContext(ctx, getAPIKeyWithCreator, id).Scan(
		&i.ID,
		&i.Name,
		&i.KeyHash,
		&i.KeyPrefix,
		&i.Service,
		&i.IsActive,
		&i.LastUsedAt,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CreatorUsername,
	)
	return i, err
}

const updateAPIKey = `-- name: UpdateAPIKey :execresult
UPDATE api_keys SET name = ?, service = ?, is_active = ?, updated_at = ?
WHERE id = ?`

type UpdateAPIKeyParams struct {
	Name      string    `json:"name"`
	Service   string    `json:"service"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        int64     `json:"id"`
}

func (q *Queries) UpdateAPIKey(ctx context.Context, arg UpdateAPIKeyParams) (ApiKey, error) {
	result, err := q.db.ExecContext(ctx, updateAPIKey,
		arg.Name,
		arg.Service,
		arg.IsActive,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return ApiKey{}, err
	}
	return q.reloadAPIKey(ctx, result, arg.ID)
}

const rotateAPIKey = `-- name: RotateAPIKey :execresult
UPDATE api_keys SET key_hash = ?, key_prefix = ?, updated_at = ?
WHERE id = ?`

type RotateAPIKeyParams struct {
	KeyHash   string    `json:"key_hash"`
	KeyPrefix string    `json:"key_prefix"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        int64     `json:"id"`
}

func (q *Queries) RotateAPIKey(ctx context.Context, arg RotateAPIKeyParams) (ApiKey, error) {
	result, err := q.db.ExecContext(ctx, rotateAPIKey,
		arg.KeyHash,
		arg.KeyPrefix,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return ApiKey{}, err
	}
	return q.reloadAPIKey(ctx, result, arg.ID)
}

// reloadAPIKey returns sql.ErrNoRows when the update matched nothing.
func (q *Queries) reloadAPIKey(ctx context.Context, result sql.Result, id int64) (ApiKey, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return ApiKey{}, err
	}
	if n == 0 {
		return ApiKey{}, sql.ErrNoRows
	}
	return q.GetAPIKeyByID(ctx, id)
}

const updateAPIKeyLastUsed = `-- name: UpdateAPIKeyLastUsed :exec
UPDATE api_keys SET last_used_at = ? WHERE id = ?`

type UpdateAPIKeyLastUsedParams struct {
	LastUsedAt sql.NullTime `json:"last_used_at"`
	ID         int64        `json:"id"`
}

func (q *Queries) UpdateAPIKeyLastUsed(ctx context.Context, arg UpdateAPIKeyLastUsedParams) error {
	_, err := q.db.ExecContext(ctx, updateAPIKeyLastUsed, arg.LastUsedAt, arg.ID)
	return err
}

const deleteAPIKey = `-- name: DeleteAPIKey :execrows
DELETE FROM api_keys WHERE id = ?`

func (q *Queries) DeleteAPIKey(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAPIKey, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
