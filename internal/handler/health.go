// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Banner is the plain-text body of GET /.
const Banner = "Avalon - Error Collector is running."

// healthCheckTimeout bounds the database ping.
const healthCheckTimeout = 2 * time.Second

// Pinger checks that the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports the number of live dashboard connections.
type ClientCounter interface {
	Count() int
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        Pinger
	clients   ClientCounter
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger, clients ClientCounter, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{db: db, clients: clients, logger: logger, startTime: time.Now()}
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Clients  int    `json:"clients"`
	Uptime   string `json:"uptime"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := HealthStatus{
		Status:   statusOK,
		Database: "connected",
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.clients != nil {
		status.Clients = h.clients.Count()
	}

	code := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check: database unreachable", "error", err)
		status.Status = "error"
		status.Database = "disconnected"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, status)
}

// Root handles GET / with a plain-text banner.
func Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Banner))
}
