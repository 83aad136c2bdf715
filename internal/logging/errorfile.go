// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/olegiv/avalon/internal/model"
)

// ErrorFile appends one JSON line per stored event to a file.
type ErrorFile struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
}

// OpenErrorFile opens path for appending, creating it and its directory if needed.
func OpenErrorFile(path string) (*ErrorFile, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating error log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening error log file: %w", err)
	}

	h := slog.NewJSONHandler(f, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Drop the record level; the event carries its own.
			if _, ok := a.Value.Any().(slog.Level); ok && len(groups) == 0 && a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return &ErrorFile{file: f, logger: slog.New(h)}, nil
}

// Append writes ev. It has the signature of a notification stage.
func (e *ErrorFile) Append(ctx context.Context, ev model.ErrorEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return os.ErrClosed
	}

	e.logger.LogAttrs(ctx, slog.LevelInfo, "error event",
		slog.String("id", ev.ID),
		slog.String("service", ev.Service),
		slog.String("level", ev.Level),
		slog.String("message", deref(ev.Message)),
		slog.Time("createdAt", ev.CreatedAt.UTC()),
	)
	return nil
}

// Close closes the underlying file. Appends after Close fail.
func (e *ErrorFile) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
