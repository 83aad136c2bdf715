// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateSchedule(t *testing.T) {
	for _, spec := range []string{"@hourly", "@daily", "*/5 * * * *", "0 3 * * 1"} {
		assert.NoError(t, ValidateSchedule(spec), spec)
	}
	for _, spec := range []string{"", "every hour", "* * *", "61 * * * *"} {
		assert.Error(t, ValidateSchedule(spec), spec)
	}
}

func TestScheduler_AddAndRunNow(t *testing.T) {
	s := New(testLogger())

	calls := 0
	require.NoError(t, s.Add(Job{Name: "count", Schedule: "@hourly", Run: func(context.Context) error {
		calls++
		return nil
	}}))
	assert.Error(t, s.Add(Job{Name: "bad", Schedule: "nope", Run: func(context.Context) error { return nil }}))

	require.Len(t, s.Jobs(), 1)
	require.NoError(t, s.RunNow("count"))
	assert.Equal(t, 1, calls)
	assert.Error(t, s.RunNow("missing"))
}

func TestScheduler_RunNowReturnsJobError(t *testing.T) {
	s := New(testLogger())
	boom := errors.New("boom")
	require.NoError(t, s.Add(Job{Name: "fail", Schedule: "@daily", Run: func(context.Context) error { return boom }}))

	assert.ErrorIs(t, s.RunNow("fail"), boom)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Add(Job{Name: "noop", Schedule: "@hourly", Run: func(context.Context) error { return nil }}))

	s.Start()
	s.Stop()

	assert.Error(t, s.ctx.Err(), "stop cancels the job context")
}

type fakePurger struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakePurger) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

func TestRetentionJob(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := &fakePurger{n: 4}
	job := retentionJob(p, 7, "@hourly", testLogger(), func() time.Time { return now })

	assert.Equal(t, RetentionJobName, job.Name)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), p.cutoff)

	p.err = errors.New("locked")
	assert.Error(t, job.Run(context.Background()))
}

func TestRetentionJob_Registers(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Add(RetentionJob(&fakePurger{}, 30, "@daily", nil)))
	require.NoError(t, s.RunNow(RetentionJobName))
}
