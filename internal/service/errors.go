// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/avalon/internal/cache"
	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/realtime"
	"github.com/olegiv/avalon/internal/store"
)

// StatsCacheKey is the cache key of the aggregated error statistics.
const StatsCacheKey = "stats:errors"

// Broadcaster sends housekeeping notices to live dashboards.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, data any) error
}

// Paging limits for error listing.
type Paging struct {
	Default int
	Max     int
}

// ErrorService manages stored error events.
type ErrorService struct {
	queries  *store.Queries
	cache    cache.Cache
	cacheTTL time.Duration
	notifier Broadcaster
	paging   Paging
	logger   *slog.Logger
}

// NewErrorService creates an ErrorService. notifier may be nil.
func NewErrorService(q *store.Queries, c cache.Cache, cacheTTL time.Duration, notifier Broadcaster, paging Paging, logger *slog.Logger) *ErrorService {
	if logger == nil {
		logger = slog.Default()
	}
	if paging.Max <= 0 {
		paging.Max = 100
	}
	if paging.Default <= 0 || paging.Default > paging.Max {
		paging.Default = min(50, paging.Max)
	}
	return &ErrorService{
		queries:  q,
		cache:    c,
		cacheTTL: cacheTTL,
		notifier: notifier,
		paging:   paging,
		logger:   logger,
	}
}

// Clamp applies the paging rules: a non-positive take selects the default,
// take never exceeds the maximum, and a negative skip becomes zero.
func (p Paging) Clamp(take, skip int) (int, int) {
	if take <= 0 {
		take = p.Default
	}
	if take > p.Max {
		take = p.Max
	}
	if skip < 0 {
		skip = 0
	}
	return take, skip
}

// List returns events newest first.
func (s *ErrorService) List(ctx context.Context, take, skip int) ([]model.ErrorEvent, error) {
	take, skip = s.paging.Clamp(take, skip)

	rows, err := s.queries.ListErrorEvents(ctx, store.ListErrorEventsParams{
		Limit:  int64(take),
		Offset: int64(skip),
	})
	if err != nil {
		return nil, fmt.Errorf("listing errors: %w", err)
	}

	items := make([]model.ErrorEvent, len(rows))
	for i, r := range rows {
		items[i] = r.ToModel()
	}
	return items, nil
}

// Get returns one event.
func (s *ErrorService) Get(ctx context.Context, id string) (model.ErrorEvent, error) {
	row, err := s.queries.GetErrorEvent(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrorEvent{}, ErrNotFound
	}
	if err != nil {
		return model.ErrorEvent{}, fmt.Errorf("getting error %s: %w", id, err)
	}
	return row.ToModel(), nil
}

// Stats returns totals per level and per service, served from the cache
// when possible.
func (s *ErrorService) Stats(ctx context.Context) (model.ErrorStats, error) {
	if s.cache != nil {
		stats, err := cache.GetJSON[model.ErrorStats](ctx, s.cache, StatsCacheKey)
		if err == nil {
			return stats, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("stats cache read failed", "error", err)
		}
	}

	stats, err := s.computeStats(ctx)
	if err != nil {
		return model.ErrorStats{}, err
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, StatsCacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", "error", err)
		}
	}
	return stats, nil
}

func (s *ErrorService) computeStats(ctx context.Context) (model.ErrorStats, error) {
	total, err := s.queries.CountErrorEvents(ctx)
	if err != nil {
		return model.ErrorStats{}, fmt.Errorf("counting errors: %w", err)
	}
	byLevel, err := s.queries.CountErrorEventsByLevel(ctx)
	if err != nil {
		return model.ErrorStats{}, fmt.Errorf("counting errors by level: %w", err)
	}
	byService, err := s.queries.CountErrorEventsByService(ctx)
	if err != nil {
		return model.ErrorStats{}, fmt.Errorf("counting errors by service: %w", err)
	}

	return model.ErrorStats{
		Total:     total,
		ByLevel:   groupMap(byLevel),
		ByService: groupMap(byService),
	}, nil
}

func groupMap(groups []store.GroupCount) map[string]int64 {
	m := make(map[string]int64, len(groups))
	for _, g := range groups {
		m[g.Name] = g.Count
	}
	return m
}

// InvalidateStats drops the cached statistics. It has the signature of a
// notification stage so ingestion can call it for every stored event.
func (s *ErrorService) InvalidateStats(ctx context.Context, _ model.ErrorEvent) error {
	return s.invalidate(ctx)
}

func (s *ErrorService) invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, StatsCacheKey); err != nil {
		return fmt.Errorf("invalidating stats cache: %w", err)
	}
	return nil
}

// Delete removes one event. It returns ErrNotFound for unknown ids.
func (s *ErrorService) Delete(ctx context.Context, id string) error {
	n, err := s.queries.DeleteErrorEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting error %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.afterDelete(ctx, model.DeletionNotice{Scope: model.DeleteScopeOne, ID: id, Count: n})
	return nil
}

// DeleteAll removes every event and returns how many were removed.
func (s *ErrorService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.queries.DeleteAllErrorEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("deleting all errors: %w", err)
	}
	s.afterDelete(ctx, model.DeletionNotice{Scope: model.DeleteScopeAll, Count: n})
	return n, nil
}

// DeleteByService removes the events of one service and returns the count.
func (s *ErrorService) DeleteByService(ctx context.Context, service string) (int64, error) {
	if service == "" {
		return 0, invalid("Service is required")
	}
	n, err := s.queries.DeleteErrorEventsByService(ctx, service)
	if err != nil {
		return 0, fmt.Errorf("deleting errors of %s: %w", service, err)
	}
	s.afterDelete(ctx, model.DeletionNotice{Scope: model.DeleteScopeService, Service: service, Count: n})
	return n, nil
}

// PurgeOlderThan removes events created before cutoff. Used by the retention job.
func (s *ErrorService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.queries.DeleteErrorEventsBefore(ctx, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging errors before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		s.afterDelete(ctx, model.DeletionNotice{Scope: model.DeleteScopeRetention, Count: n})
	}
	return n, nil
}

func (s *ErrorService) afterDelete(ctx context.Context, notice model.DeletionNotice) {
	if err := s.invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate stats after delete", "error", err)
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Broadcast(ctx, realtime.EventErrorsDeleted, notice); err != nil {
		s.logger.Warn("failed to broadcast deletion", "scope", notice.Scope, "error", err)
	}
}
