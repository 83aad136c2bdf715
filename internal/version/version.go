// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import (
	"fmt"
	"log/slog"
)

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string // Short git commit hash (e.g., "abc1234")
	BuildTime string // Build timestamp in RFC3339 format
}

// String formats the info the way -version prints it.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", orUnknown(i.Version), orUnknown(i.GitCommit), orUnknown(i.BuildTime))
}

// LogValue implements slog.LogValuer.
func (i Info) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", orUnknown(i.Version)),
		slog.String("commit", orUnknown(i.GitCommit)),
		slog.String("built", orUnknown(i.BuildTime)),
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
