// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// RetentionJobName names the job that purges old error events.
const RetentionJobName = "retention"

// Purger deletes events created before a cutoff.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob builds a job that deletes events older than days.
func RetentionJob(p Purger, days int, schedule string, logger *slog.Logger) Job {
	return retentionJob(p, days, schedule, logger, time.Now)
}

func retentionJob(p Purger, days int, schedule string, logger *slog.Logger, now func() time.Time) Job {
	if logger == nil {
		logger = slog.Default()
	}
	return Job{
		Name:     RetentionJobName,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			cutoff := now().UTC().AddDate(0, 0, -days)
			n, err := p.PurgeOlderThan(ctx, cutoff)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("purged old error events", "count", n, "before", cutoff.Format(time.RFC3339))
			}
			return nil
		},
	}
}
