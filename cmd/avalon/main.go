// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/avalon/internal/config"
	"github.com/olegiv/avalon/internal/ingest"
	"github.com/olegiv/avalon/internal/logging"
	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/store"
	"github.com/olegiv/avalon/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Avalon - Error Collector\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AVALON_JWT_SECRET          Token signing secret (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AVALON_DB_PATH             SQLite database path (default: ./data/avalon.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AVALON_SERVER_HOST         Listen host (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AVALON_SERVER_PORT         Server port (default: 4000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AVALON_ENV                 Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AVALON_ADMIN_PASSWORD      Password for the first admin account\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AVALON_DISCORD_WEBHOOK_URL Initial Discord webhook URL (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AVALON_REDIS_URL           Redis URL for the stats cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AVALON_RETENTION_DAYS      Purge events older than this many days (default: 0, keep)\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nFor more information, see: https://github.com/olegiv/avalon\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Printf("avalon %s\n", info)
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(info version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)
	slog.Info("starting avalon", "build", info, "env", cfg.Env)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade the logger so our own warnings land in the error store too.
	// The recorder only persists; these events are never broadcast.
	var selfReport *logging.SelfReportHandler
	if cfg.SelfReport {
		selfReport = logging.NewSelfReportHandler(textHandler, ingest.NewCoordinator(store.New(db), logger))
		defer selfReport.Close()
		logger = slog.New(selfReport)
		slog.SetDefault(logger)
		slog.Info("self-reporting enabled", "min_level", "warn", "service", model.SelfReportService)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer a.close()
	if selfReport != nil {
		a.attachSelfReport(selfReport)
		// Flush pending records while the cache is still open.
		defer selfReport.Close()
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           a.router(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// No WriteTimeout: websocket sessions are long-lived.
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
