// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ingest turns authenticated reports into stored error events and
// hands them to the notification stages.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/store"
)

// ErrPersist is returned when the event could not be stored.
var ErrPersist = errors.New("failed to store error event")

// EventStore persists events.
type EventStore interface {
	CreateErrorEvent(ctx context.Context, arg store.CreateErrorEventParams) (store.ErrorEvent, error)
}

// Stage is one notification step run after an event is stored. Its failure
// is logged and never reaches the reporter.
type Stage struct {
	Name string
	Run  func(ctx context.Context, ev model.ErrorEvent) error
}

// Coordinator runs persist, then every stage, then returns the stored event.
type Coordinator struct {
	store  EventStore
	stages []Stage
	logger *slog.Logger

	newID func() string
	now   func() time.Time
}

// NewCoordinator creates a coordinator. Stages run in the given order.
func NewCoordinator(s EventStore, logger *slog.Logger, stages ...Stage) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:  s,
		stages: stages,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Ingest stores the payload under the identity's service and notifies.
// The returned error is ErrPersist when nothing was stored; notification
// problems never produce an error.
func (c *Coordinator) Ingest(ctx context.Context, identity model.ServiceIdentity, p Payload) (model.ErrorEvent, error) {
	ev, err := c.Persist(ctx, p.Normalize(identity.Service))
	if err != nil {
		return model.ErrorEvent{}, err
	}

	c.Notify(ctx, ev)
	return ev, nil
}

// Persist stores a report without running any stage.
func (c *Coordinator) Persist(ctx context.Context, r Report) (model.ErrorEvent, error) {
	row, err := c.store.CreateErrorEvent(ctx, store.CreateErrorEventParams{
		ID:        c.newID(),
		Service:   r.Service,
		Message:   store.NullString(r.Message),
		Stack:     store.NullString(r.Stack),
		Path:      store.NullString(r.Path),
		Method:    store.NullString(r.Method),
		Level:     r.Level,
		Metadata:  nullJSON(r.Metadata),
		CreatedAt: c.now().UTC(),
	})
	if err != nil {
		return model.ErrorEvent{}, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return row.ToModel(), nil
}

// Notify runs every stage in order. Each stage is isolated: an error or a
// panic is logged and the next stage still runs.
func (c *Coordinator) Notify(ctx context.Context, ev model.ErrorEvent) {
	// Notifications outlive a reporter that hangs up after the store succeeded.
	ctx = context.WithoutCancel(ctx)
	for _, st := range c.stages {
		c.runStage(ctx, st, ev)
	}
}

func (c *Coordinator) runStage(ctx context.Context, st Stage, ev model.ErrorEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("notification stage panicked", "stage", st.Name, "event_id", ev.ID, "panic", r)
		}
	}()

	if err := st.Run(ctx, ev); err != nil {
		c.logger.Error("notification stage failed", "stage", st.Name, "event_id", ev.ID, "error", err)
	}
}

func nullJSON(raw []byte) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
