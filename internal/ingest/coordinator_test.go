// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/store"
)

type failingStore struct{}

func (failingStore) CreateErrorEvent(context.Context, store.CreateErrorEventParams) (store.ErrorEvent, error) {
	return store.ErrorEvent{}, errors.New("database is locked")
}

// recorder collects stage invocations in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) stage(name string, err error) Stage {
	return Stage{Name: name, Run: func(ctx context.Context, ev model.ErrorEvent) error {
		r.mu.Lock()
		r.calls = append(r.calls, name+":"+ev.ID)
		r.mu.Unlock()
		return err
	}}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestQueries(t *testing.T) *store.Queries {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))
	return store.New(db)
}

func decode(t *testing.T, body string) Payload {
	t.Helper()
	p, err := DecodePayload(strings.NewReader(body))
	require.NoError(t, err)
	return p
}

func TestCoordinator_Ingest(t *testing.T) {
	q := newTestQueries(t)
	rec := &recorder{}
	c := NewCoordinator(q, quietLogger(), rec.stage("file", nil), rec.stage("broadcast", nil))

	id := model.ServiceIdentity{KeyID: 1, Service: "billing"}
	ev, err := c.Ingest(context.Background(), id, decode(t, `{"service":"evil","error":{"message":"boom"},"metadata":{"a":1}}`))
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "billing", ev.Service)
	assert.Equal(t, "error", ev.Level)
	assert.Nil(t, ev.Stack)
	assert.JSONEq(t, `{"a":1}`, string(ev.Metadata))
	assert.False(t, ev.CreatedAt.IsZero())

	assert.Equal(t, []string{"file:" + ev.ID, "broadcast:" + ev.ID}, rec.calls)

	stored, err := q.GetErrorEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "billing", stored.Service)
}

func TestCoordinator_NoDedup(t *testing.T) {
	q := newTestQueries(t)
	c := NewCoordinator(q, quietLogger())
	id := model.ServiceIdentity{Service: "svc"}

	a, err := c.Ingest(context.Background(), id, decode(t, `{"error":{"message":"same"}}`))
	require.NoError(t, err)
	b, err := c.Ingest(context.Background(), id, decode(t, `{"error":{"message":"same"}}`))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	count, err := q.CountErrorEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCoordinator_PersistFailureSkipsStages(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(failingStore{}, quietLogger(), rec.stage("broadcast", nil))

	_, err := c.Ingest(context.Background(), model.ServiceIdentity{Service: "svc"}, Payload{})
	assert.ErrorIs(t, err, ErrPersist)
	assert.Empty(t, rec.calls)
}

func TestCoordinator_StageFailuresAreIsolated(t *testing.T) {
	q := newTestQueries(t)
	rec := &recorder{}
	panicking := Stage{Name: "webhook", Run: func(context.Context, model.ErrorEvent) error {
		panic("nil map")
	}}
	c := NewCoordinator(q, quietLogger(),
		rec.stage("file", errors.New("disk full")),
		panicking,
		rec.stage("broadcast", nil),
	)

	ev, err := c.Ingest(context.Background(), model.ServiceIdentity{Service: "svc"}, Payload{})
	require.NoError(t, err)
	assert.Equal(t, []string{"file:" + ev.ID, "broadcast:" + ev.ID}, rec.calls)
}

func TestCoordinator_StagesSurviveCancelledRequest(t *testing.T) {
	q := newTestQueries(t)
	var stageErr error
	c := NewCoordinator(q, quietLogger(), Stage{Name: "probe", Run: func(ctx context.Context, _ model.ErrorEvent) error {
		stageErr = ctx.Err()
		return nil
	}})

	ev, err := c.Persist(context.Background(), Report{Service: "svc", Level: "info"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Notify(ctx, ev)
	assert.NoError(t, stageErr)
}
