// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/olegiv/avalon/internal/model"
)

// SettingsSource supplies the current webhook settings. It is consulted
// before every delivery so changes apply to the next event.
type SettingsSource interface {
	GetSettings(ctx context.Context) (model.Settings, error)
}

// Dispatcher delivers events to the configured webhook on a small worker pool.
type Dispatcher struct {
	settings SettingsSource
	client   *http.Client
	logger   *slog.Logger
	queue    chan model.ErrorEvent
	workers  int
	wg       sync.WaitGroup
	done     chan struct{}
	mu       sync.RWMutex
	running  bool
}

// Config holds dispatcher configuration.
type Config struct {
	Workers      int  // Number of concurrent delivery workers
	QueueSize    int  // Pending deliveries before new ones are dropped
	AllowPrivate bool // Permit webhook hosts on private networks (development only)
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   2,
		QueueSize: 100,
	}
}

// NewDispatcher creates a new webhook dispatcher.
func NewDispatcher(settings SettingsSource, logger *slog.Logger, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		settings: settings,
		client:   newHTTPClient(cfg.AllowPrivate),
		logger:   logger,
		queue:    make(chan model.ErrorEvent, cfg.QueueSize),
		workers:  cfg.Workers,
		done:     make(chan struct{}),
	}
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.workers)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher and waits for in-flight deliveries to finish.
// Events still queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping webhook dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("webhook worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

// Enqueue schedules ev for delivery without waiting. When the dispatcher is
// stopped or its queue is full the event is dropped with a warning.
func (d *Dispatcher) Enqueue(_ context.Context, ev model.ErrorEvent) error {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	if !running {
		d.logger.Warn("webhook dispatcher not running, dropping event", "event_id", ev.ID)
		return nil
	}

	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("webhook queue full, dropping event", "event_id", ev.ID)
	}
	return nil
}

// deliver reads the settings and posts one event. It never retries.
func (d *Dispatcher) deliver(ctx context.Context, ev model.ErrorEvent) {
	settings, err := d.settings.GetSettings(ctx)
	if err != nil {
		d.logger.Error("failed to load webhook settings", "event_id", ev.ID, "error", err)
		return
	}
	if !settings.WebhookActive() {
		return
	}

	result := d.post(ctx, settings.DiscordWebhookURL, BuildMessage(ev))
	if result.Error != nil {
		d.logger.Error("discord webhook delivery failed",
			"event_id", ev.ID,
			"status_code", result.StatusCode,
			"error", result.Error)
		return
	}
	d.logger.Debug("discord webhook delivered", "event_id", ev.ID, "status_code", result.StatusCode)
}
