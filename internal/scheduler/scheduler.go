// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the collector's periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single job run.
const jobTimeout = 5 * time.Minute

// parser accepts standard five-field expressions and descriptors like @hourly.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether spec is a valid cron expression.
func ValidateSchedule(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Job is one named periodic task.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler wraps a cron runner. Jobs never overlap with themselves.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs []Job
}

// New creates a scheduler with no jobs.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job. It fails for an invalid schedule.
func (s *Scheduler) Add(job Job) error {
	if err := ValidateSchedule(job.Schedule); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.run(job) }); err != nil {
		return fmt.Errorf("adding job %s: %w", job.Name, err)
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	return nil
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow runs a job synchronously outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	for _, job := range s.Jobs() {
		if job.Name == name {
			return s.run(job)
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) run(job Job) error {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled job failed", "job", job.Name, "error", err)
		return err
	}
	s.logger.Debug("scheduled job finished", "job", job.Name, "duration", time.Since(start))
	return nil
}
