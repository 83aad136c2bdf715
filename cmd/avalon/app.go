// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/avalon/internal/auth"
	"github.com/olegiv/avalon/internal/cache"
	"github.com/olegiv/avalon/internal/config"
	"github.com/olegiv/avalon/internal/ingest"
	"github.com/olegiv/avalon/internal/logging"
	"github.com/olegiv/avalon/internal/middleware"
	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/realtime"
	"github.com/olegiv/avalon/internal/scheduler"
	"github.com/olegiv/avalon/internal/service"
	"github.com/olegiv/avalon/internal/store"
	"github.com/olegiv/avalon/internal/webhook"
)

// webhookQueueSize bounds deliveries waiting for a worker.
const webhookQueueSize = 100

// app holds the long-lived components shared by the router and shutdown.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	queries     *store.Queries
	cache       cache.Cache
	broker      *realtime.Broker
	gate        *auth.Gate
	errors      *service.ErrorService
	accounts    *service.AccountService
	keys        *service.APIKeyService
	settings    *service.SettingsService
	dispatcher  *webhook.Dispatcher
	errorFile   *logging.ErrorFile
	coordinator *ingest.Coordinator
	protection  *middleware.LoginProtection
	scheduler   *scheduler.Scheduler
}

// newApp seeds the database and starts the background workers. The caller
// must call close.
func newApp(ctx context.Context, cfg *config.Config, db *sql.DB, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, queries: store.New(db)}

	seeded, err := service.Seed(ctx, a.queries, service.SeedOptions{
		AdminPassword: cfg.AdminPassword,
		TestKey:       cfg.DoSeed,
		Development:   cfg.IsDevelopment(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("seeding database: %w", err)
	}
	if seeded.TestKey != "" {
		// Shown once, like any freshly created key.
		logger.Info("created API key for "+service.TestServiceName, "key", seeded.TestKey)
	}

	var backend string
	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	a.cache, backend = cache.Open(ctx, cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cacheTTL,
	}, logger)
	logger.Info("stats cache ready", "backend", backend)

	a.broker = realtime.NewBroker(cfg.WSWriteTimeout, logger)
	a.gate = auth.NewGate(a.queries, auth.NewTokenIssuer(cfg.JWTSecret), logger)

	a.errors = service.NewErrorService(a.queries, a.cache, cacheTTL, a.broker, service.Paging{
		Default: cfg.DefaultErrorsPerPage,
		Max:     cfg.MaxErrorsPerPage,
	}, logger)
	a.accounts = service.NewAccountService(a.queries, a.gate.Tokens(), logger)
	a.keys = service.NewAPIKeyService(a.queries)

	// Private webhook hosts are only reachable in development.
	allowPrivate := cfg.IsDevelopment()
	a.settings = service.NewSettingsService(a.queries, model.Settings{
		DiscordWebhookURL: cfg.DiscordWebhookURL,
		DiscordEnabled:    cfg.DiscordEnabled,
	}, allowPrivate)

	a.dispatcher = webhook.NewDispatcher(a.settings, logger, webhook.Config{
		Workers:      cfg.WebhookWorkers,
		QueueSize:    webhookQueueSize,
		AllowPrivate: allowPrivate,
	})
	// Workers drain until close, not until the shutdown signal.
	a.dispatcher.Start(context.WithoutCancel(ctx))

	if cfg.ErrorLogFile != "" {
		a.errorFile, err = logging.OpenErrorFile(cfg.ErrorLogFile)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	// Stages run in order after the event is stored.
	stages := []ingest.Stage{
		{Name: "stats", Run: a.errors.InvalidateStats},
	}
	if a.errorFile != nil {
		stages = append(stages, ingest.Stage{Name: "error-file", Run: a.errorFile.Append})
	}
	stages = append(stages,
		ingest.Stage{Name: "discord", Run: a.dispatcher.Enqueue},
		ingest.Stage{Name: "broadcast", Run: a.broker.Publish},
	)
	a.coordinator = ingest.NewCoordinator(a.queries, logger, stages...)

	a.protection = middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	a.scheduler = scheduler.New(logger)
	if cfg.RetentionEnabled() {
		job := scheduler.RetentionJob(a.errors, cfg.RetentionDays, cfg.RetentionSchedule, logger)
		if err := a.scheduler.Add(job); err != nil {
			a.close()
			return nil, fmt.Errorf("scheduling retention: %w", err)
		}
		logger.Info("retention enabled", "days", cfg.RetentionDays, "schedule", cfg.RetentionSchedule)
	}
	a.scheduler.Start()

	return a, nil
}

// attachSelfReport keeps the stats cache fresh for the collector's own
// stored warnings. h may be nil when self-reporting is off.
func (a *app) attachSelfReport(h *logging.SelfReportHandler) {
	if h == nil {
		return
	}
	h.AfterStore(a.errors.InvalidateStats)
}

// close stops background work in dependency order. It tolerates a partially
// built app.
func (a *app) close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.protection != nil {
		a.protection.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Stop()
	}
	if a.broker != nil {
		a.broker.Close()
	}
	if a.gate != nil {
		a.gate.Wait()
	}
	if a.errorFile != nil {
		if err := a.errorFile.Close(); err != nil {
			a.logger.Error("error closing error log file", "error", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("error closing cache", "error", err)
		}
	}
}
