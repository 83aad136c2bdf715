// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/avalon/internal/ingest"
	"github.com/olegiv/avalon/internal/model"
)

type fakeRecorder struct {
	mu      sync.Mutex
	reports []ingest.Report
	err     error
	logger  *slog.Logger
}

func (f *fakeRecorder) Persist(ctx context.Context, r ingest.Report) (model.ErrorEvent, error) {
	f.mu.Lock()
	f.reports = append(f.reports, r)
	f.mu.Unlock()
	if f.logger != nil {
		f.logger.WarnContext(ctx, "persisting")
	}
	return model.ErrorEvent{ID: "x"}, f.err
}

func (f *fakeRecorder) all() []ingest.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ingest.Report(nil), f.reports...)
}

func newTestHandler(rec Recorder) (*SelfReportHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSelfReportHandler(inner, rec), &buf
}

func TestSelfReport_WarnAndAbove(t *testing.T) {
	rec := &fakeRecorder{}
	h, buf := newTestHandler(rec)
	logger := slog.New(h)

	logger.Info("started")
	logger.Warn("disk almost full", "free", 12)
	logger.Error("query failed", "error", errors.New("locked"))
	h.Close()

	reports := rec.all()
	require.Len(t, reports, 2)

	assert.Equal(t, model.SelfReportService, reports[0].Service)
	assert.Equal(t, model.LevelWarning, reports[0].Level)
	assert.Equal(t, "disk almost full", *reports[0].Message)
	assert.JSONEq(t, `{"free":12}`, string(reports[0].Metadata))

	assert.Equal(t, model.LevelError, reports[1].Level)
	assert.JSONEq(t, `{"error":"locked"}`, string(reports[1].Metadata))

	out := buf.String()
	assert.Contains(t, out, "started")
	assert.Contains(t, out, "query failed")
}

func TestSelfReport_AttrsAndGroups(t *testing.T) {
	rec := &fakeRecorder{}
	h, _ := newTestHandler(rec)
	logger := slog.New(h).With("component", "http").WithGroup("req")

	logger.Warn("slow request", "path", "/errors", "method", "GET", "ms", 900)
	h.Close()

	reports := rec.all()
	require.Len(t, reports, 1)
	r := reports[0]

	assert.Nil(t, r.Path, "grouped path is metadata, not the event path")
	var meta map[string]any
	require.NoError(t, json.Unmarshal(r.Metadata, &meta))
	assert.Equal(t, "http", meta["component"])
	assert.Equal(t, "/errors", meta["req.path"])
	assert.Equal(t, float64(900), meta["req.ms"])
}

func TestSelfReport_PathMethodStack(t *testing.T) {
	rec := &fakeRecorder{}
	h, _ := newTestHandler(rec)

	slog.New(h).Error("handler panic", "path", "/report", "method", "POST", "stack", "goroutine 1")
	h.Close()

	reports := rec.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "/report", *reports[0].Path)
	assert.Equal(t, "POST", *reports[0].Method)
	assert.Equal(t, "goroutine 1", *reports[0].Stack)
	assert.Nil(t, reports[0].Metadata)
}

func TestSelfReport_NoRecursion(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("store down")}
	h, buf := newTestHandler(rec)
	rec.logger = slog.New(h)

	slog.New(h).Warn("first")
	h.Close()

	assert.Len(t, rec.all(), 1)
	assert.Contains(t, buf.String(), "failed to store own log record")
}

func TestSelfReport_AfterClose(t *testing.T) {
	rec := &fakeRecorder{}
	h, buf := newTestHandler(rec)
	h.Close()

	slog.New(h).Error("late")
	assert.Empty(t, rec.all())
	assert.True(t, strings.Contains(buf.String(), "late"))
}

func TestSelfReport_RespectsInnerLevel(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})
	h := NewSelfReportHandler(inner, &fakeRecorder{})
	defer h.Close()

	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestSelfReport_AfterStore(t *testing.T) {
	rec := &fakeRecorder{}
	h, buf := newTestHandler(rec)
	logger := slog.New(h)

	var mu sync.Mutex
	var stored []string
	h.AfterStore(func(ctx context.Context, ev model.ErrorEvent) error {
		mu.Lock()
		stored = append(stored, ev.ID)
		mu.Unlock()
		// Logging from the hook must not be stored again.
		logger.WarnContext(ctx, "hook ran")
		return errors.New("cache down")
	})

	logger.Warn("one")
	logger.Error("two")
	h.Close()

	assert.Equal(t, []string{"x", "x"}, stored)
	assert.Len(t, rec.all(), 2)
	assert.Contains(t, buf.String(), "failed to process stored log record")
}

func TestSelfReport_AfterStoreSkipsFailedPersist(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("store down")}
	h, _ := newTestHandler(rec)

	called := false
	h.AfterStore(func(context.Context, model.ErrorEvent) error {
		called = true
		return nil
	})

	slog.New(h).Warn("lost")
	h.Close()

	assert.False(t, called)
}
