// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides slog handlers that feed the collector's own
// diagnostics back into its error store, and the append-only error file.
package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/avalon/internal/ingest"
	"github.com/olegiv/avalon/internal/model"
)

// DefaultSelfReportBuffer is the number of records held while the store catches up.
const DefaultSelfReportBuffer = 64

// Recorder stores a report without notifying anyone. ingest.Coordinator
// satisfies it.
type Recorder interface {
	Persist(ctx context.Context, r ingest.Report) (model.ErrorEvent, error)
}

type selfReportKey struct{}

// reporter is shared by a handler and all handlers derived from it.
type reporter struct {
	recorder Recorder
	inner    slog.Handler
	queue    chan ingest.Report

	mu         sync.RWMutex
	closed     bool
	afterStore func(ctx context.Context, ev model.ErrorEvent) error
	done       chan struct{}
}

// SelfReportHandler forwards every record to an inner handler and also
// stores WARN and above as error events for the collector's own service.
// Storing happens on a background goroutine so logging never waits on the
// database, and records produced while storing are never stored again.
type SelfReportHandler struct {
	inner  slog.Handler
	rep    *reporter
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

// NewSelfReportHandler wraps inner. Call Close to flush pending records.
func NewSelfReportHandler(inner slog.Handler, recorder Recorder) *SelfReportHandler {
	rep := &reporter{
		recorder: recorder,
		inner:    inner,
		queue:    make(chan ingest.Report, DefaultSelfReportBuffer),
		done:     make(chan struct{}),
	}
	go rep.run()

	return &SelfReportHandler{inner: inner, rep: rep, level: slog.LevelWarn}
}

// Enabled implements slog.Handler.
func (h *SelfReportHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SelfReportHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level < h.level || ctx.Value(selfReportKey{}) != nil {
		return nil
	}
	h.rep.enqueue(h.report(r))
	return nil
}

// WithAttrs implements slog.Handler.
func (h *SelfReportHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.inner = h.inner.WithAttrs(attrs)
	nh.attrs = append(append([]slog.Attr(nil), h.attrs...), prefixed(h.groups, attrs)...)
	return &nh
}

// WithGroup implements slog.Handler.
func (h *SelfReportHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.inner = h.inner.WithGroup(name)
	nh.groups = append(append([]string(nil), h.groups...), name)
	return &nh
}

// AfterStore registers fn to run for every stored record, such as a stats
// cache invalidation. Records stored before the call are not replayed.
func (h *SelfReportHandler) AfterStore(fn func(ctx context.Context, ev model.ErrorEvent) error) {
	h.rep.mu.Lock()
	h.rep.afterStore = fn
	h.rep.mu.Unlock()
}

// Close stops accepting records and waits until the queued ones are stored.
func (h *SelfReportHandler) Close() {
	h.rep.close()
}

func (h *SelfReportHandler) report(r slog.Record) ingest.Report {
	attrs := append([]slog.Attr(nil), h.attrs...)
	var own []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		own = append(own, a)
		return true
	})
	attrs = append(attrs, prefixed(h.groups, own)...)

	rep := ingest.Report{
		Service: model.SelfReportService,
		Level:   eventLevel(r.Level),
		Message: model.StringPtr(r.Message),
	}

	meta := make(map[string]any, len(attrs))
	for _, a := range attrs {
		v := a.Value.Resolve()
		switch a.Key {
		case "path":
			rep.Path = model.StringPtr(v.String())
			continue
		case "method":
			rep.Method = model.StringPtr(v.String())
			continue
		case "stack":
			rep.Stack = model.StringPtr(v.String())
			continue
		}
		meta[a.Key] = attrValue(v)
	}
	if len(meta) > 0 {
		if raw, err := json.Marshal(meta); err == nil {
			rep.Metadata = raw
		}
	}
	return rep
}

func eventLevel(l slog.Level) string {
	if l >= slog.LevelError {
		return model.LevelError
	}
	return model.LevelWarning
}

func attrValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindGroup:
		m := make(map[string]any)
		for _, a := range v.Group() {
			m[a.Key] = attrValue(a.Value.Resolve())
		}
		return m
	default:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.String()
	}
}

// prefixed flattens attrs under the open groups as dotted keys.
func prefixed(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(groups) == 0 {
		return attrs
	}
	prefix := ""
	for _, g := range groups {
		prefix += g + "."
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: prefix + a.Key, Value: a.Value}
	}
	return out
}

func (rp *reporter) enqueue(r ingest.Report) {
	rp.mu.RLock()
	defer rp.mu.RUnlock()
	if rp.closed {
		return
	}
	select {
	case rp.queue <- r:
	default:
		// The store is not keeping up; the record already reached the inner handler.
	}
}

func (rp *reporter) run() {
	defer close(rp.done)
	ctx := context.WithValue(context.Background(), selfReportKey{}, true)

	for r := range rp.queue {
		ev, err := rp.recorder.Persist(ctx, r)
		if err != nil {
			rp.logFailure(ctx, "failed to store own log record", err)
			continue
		}

		rp.mu.RLock()
		fn := rp.afterStore
		rp.mu.RUnlock()
		if fn != nil {
			if err := fn(ctx, ev); err != nil {
				rp.logFailure(ctx, "failed to process stored log record", err)
			}
		}
	}
}

// logFailure writes to the inner handler only, so failures are never stored.
func (rp *reporter) logFailure(ctx context.Context, msg string, err error) {
	rec := slog.NewRecord(time.Now(), slog.LevelError, msg, 0)
	rec.AddAttrs(slog.String("error", err.Error()))
	_ = rp.inner.Handle(ctx, rec)
}

func (rp *reporter) close() {
	rp.mu.Lock()
	if !rp.closed {
		rp.closed = true
		close(rp.queue)
	}
	rp.mu.Unlock()
	<-rp.done
}
