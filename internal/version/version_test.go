// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "v1.0.0",
		GitCommit: "abc1234",
		BuildTime: "2025-01-30T12:00:00Z",
	}

	want := "v1.0.0 (commit: abc1234, built: 2025-01-30T12:00:00Z)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInfoZeroValue(t *testing.T) {
	// Zero value before ldflags injection
	var info Info

	want := "unknown (commit: unknown, built: unknown)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInfoLogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("starting", "build", Info{Version: "v2.0.0", GitCommit: "def5678"})

	out := buf.String()
	for _, want := range []string{"build.version=v2.0.0", "build.commit=def5678", "build.built=unknown"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
