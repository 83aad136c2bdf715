// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const errorEventColumns = `id, service, message, stack, path, method, level, metadata, created_at`

func scanErrorEvent(row interface{ Scan(...any) error }) (ErrorEvent, error) {
	var i ErrorEvent
	err := row.Scan(
		&i.ID,
		&i.Service,
		&i.Message,
		&i.Stack,
		&i.Path,
		&i.Method,
		&i.Level,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const createErrorEvent = `-- name: CreateErrorEvent :exec
INSERT INTO error_events (` + errorEventColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateErrorEventParams struct {
	ID        string         `json:"id"`
	Service   string         `json:"service"`
	Message   sql.NullString `json:"message"`
	Stack     sql.NullString `json:"stack"`
	Path      sql.NullString `json:"path"`
	Method    sql.NullString `json:"method"`
	Level     string         `json:"level"`
	Metadata  sql.NullString `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateErrorEvent inserts an event and returns it as stored.
func (q *Queries) CreateErrorEvent(ctx context.Context, arg CreateErrorEventParams) (ErrorEvent, error) {
	_, err := q.db.ExecContext(ctx, createErrorEvent,
		arg.ID,
		arg.Service,
		arg.Message,
		arg.Stack,
		arg.Path,
		arg.Method,
		arg.Level,
		arg.Metadata,
		arg.CreatedAt,
	)
	if err != nil {
		return ErrorEvent{}, err
	}
	return ErrorEvent(arg), nil
}

const getErrorEvent = `-- name: GetErrorEvent :one
SELECT ` + errorEventColumns + ` FROM error_events WHERE id = ?`

func (q *Queries) GetErrorEvent(ctx context.Context, id string) (ErrorEvent, error) {
	return scanErrorEvent(q.db.QueryRowContext(ctx, getErrorEvent, id))
}

const listErrorEvents = `-- name: ListErrorEvents :many
SELECT ` + errorEventColumns + ` FROM error_events
ORDER BY created_at DESC, rowid DESC
LIMIT ? OFFSET ?`

type ListErrorEventsParams struct {
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

func (q *Queries) ListErrorEvents(ctx context.Context, arg ListErrorEventsParams) ([]ErrorEvent, error) {
	rows, err := q.db.QueryContext(ctx, listErrorEvents, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []ErrorEvent{}
	for rows.Next() {
		i, err := scanErrorEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteErrorEvent = `-- name: DeleteErrorEvent :execrows
DELETE FROM error_events WHERE id = ?`

func (q *Queries) DeleteErrorEvent(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteErrorEvent, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllErrorEvents = `-- name: DeleteAllErrorEvents :execrows
DELETE FROM error_events`

func (q *Queries) DeleteAllErrorEvents(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllErrorEvents)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteErrorEventsByService = `-- name: DeleteErrorEventsByService :execrows
DELETE FROM error_events WHERE service = ?`

func (q *Queries) DeleteErrorEventsByService(ctx context.Context, service string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteErrorEventsByService, service)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteErrorEventsBefore = `-- name: DeleteErrorEventsBefore :execrows
DELETE FROM error_events WHERE created_at < ?`

func (q *Queries) DeleteErrorEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteErrorEventsBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countErrorEvents = `-- name: CountErrorEvents :one
SELECT COUNT(*) FROM error_events`

func (q *Queries) CountErrorEvents(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countErrorEvents).Scan(&count)
	return count, err
}

// GroupCount is one row of a GROUP BY count.
type GroupCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

const countErrorEventsByLevel = `-- name: CountErrorEventsByLevel :many
SELECT level, COUNT(*) FROM error_events GROUP BY level ORDER BY level`

func (q *Queries) CountErrorEventsByLevel(ctx context.Context) ([]GroupCount, error) {
	return q.groupCounts(ctx, countErrorEventsByLevel)
}

const countErrorEventsByService = `-- name: CountErrorEventsByService :many
SELECT service, COUNT(*) FROM error_events GROUP BY service ORDER BY service`

func (q *Queries) CountErrorEventsByService(ctx context.Context) ([]GroupCount, error) {
	return q.groupCounts(ctx, countErrorEventsByService)
}

func (q *Queries) groupCounts(ctx context.Context, query string) ([]GroupCount, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []GroupCount
	for rows.Next() {
		var i GroupCount
		if err := rows.Scan(&i.Name, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
