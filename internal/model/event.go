// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Severity levels a reporter may send. Anything else is stored verbatim.
const (
	LevelCritical = "critical"
	LevelFatal    = "fatal"
	LevelError    = "error"
	LevelWarning  = "warning"
	LevelInfo     = "info"
	LevelDebug    = "debug"

	// LevelWarnAlias is accepted wherever LevelWarning is for display purposes.
	LevelWarnAlias = "warn"
)

// DefaultLevel is assigned to reports that carry no level.
const DefaultLevel = LevelError

// SelfReportService is the service name used for the collector's own warnings.
const SelfReportService = "avalon"

// Levels returns the recognised severity levels, most severe first.
func Levels() []string {
	return []string{LevelCritical, LevelFatal, LevelError, LevelWarning, LevelInfo, LevelDebug}
}

// CanonicalLevel lowercases a level and folds the "warn" alias into "warning".
// The second return value reports whether the level is recognised.
func CanonicalLevel(level string) (string, bool) {
	l := strings.ToLower(strings.TrimSpace(level))
	if l == LevelWarnAlias {
		l = LevelWarning
	}
	for _, known := range Levels() {
		if l == known {
			return l, true
		}
	}
	return l, false
}

// ErrorEvent is a stored error report. It is never modified after creation.
//
// Optional fields are pointers so that absent values serialise as JSON null
// instead of being omitted.
type ErrorEvent struct {
	ID        string          `json:"id"`
	Service   string          `json:"service"`
	Message   *string         `json:"message"`
	Stack     *string         `json:"stack"`
	Path      *string         `json:"path"`
	Method    *string         `json:"method"`
	Level     string          `json:"level"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ErrorStats summarises the stored events.
type ErrorStats struct {
	Total     int64            `json:"total"`
	ByLevel   map[string]int64 `json:"byLevel"`
	ByService map[string]int64 `json:"byService"`
}

// Deletion scopes carried by the errors:deleted notice.
const (
	DeleteScopeOne     = "one"
	DeleteScopeAll     = "all"
	DeleteScopeService = "service"

	// DeleteScopeRetention marks events removed by the retention job.
	DeleteScopeRetention = "retention"
)

// DeletionNotice tells live dashboards that stored events were removed.
type DeletionNotice struct {
	Scope   string `json:"scope"`
	ID      string `json:"id,omitempty"`
	Service string `json:"service,omitempty"`
	Count   int64  `json:"count"`
}

// StringPtr returns nil for an empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
