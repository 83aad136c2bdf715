// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/avalon/internal/ingest"
	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/service"
)

// sampleReport describes one synthetic event.
type sampleReport struct {
	message string
	stack   string
	path    string
	method  string
}

var sampleReports = map[string]sampleReport{
	model.LevelCritical: {
		message: "Critical system failure - Database unavailable",
		stack:   "Error: Connection refused\n  at Database.connect (db.ts:45)\n  at Server.init (server.ts:12)",
		path:    "/api/database",
		method:  http.MethodGet,
	},
	model.LevelFatal: {
		message: "Fatal error - Application crashed",
		stack:   "FatalError: Out of memory\n  at Process.allocate (process.ts:89)\n  at Worker.run (worker.ts:234)",
		path:    "/api/worker",
		method:  http.MethodPost,
	},
	model.LevelError: {
		message: "Payment processing failed",
		stack:   "Error: Transaction timeout\n  at PaymentGateway.charge (payment.ts:156)\n  at OrderService.process (order.ts:78)",
		path:    "/api/checkout",
		method:  http.MethodPost,
	},
	model.LevelWarning: {
		message: "High memory usage detected - 85% utilization",
		path:    "/health",
		method:  http.MethodGet,
	},
	model.LevelInfo: {
		message: "User authentication successful",
		path:    "/api/login",
		method:  http.MethodPost,
	},
	model.LevelDebug: {
		message: "Debug: Request processed in 234ms",
		path:    "/api/users",
		method:  http.MethodGet,
	},
}

func (s sampleReport) payload(level string) ingest.Payload {
	return ingest.Payload{
		Level: &level,
		Error: &ingest.ErrorDetails{
			Message: model.StringPtr(s.message),
			Stack:   model.StringPtr(s.stack),
			Path:    model.StringPtr(s.path),
			Method:  model.StringPtr(s.method),
		},
	}
}

// TestRoutesHandler synthesizes sample events through the full ingestion
// pipeline. It is mounted in development only.
type TestRoutesHandler struct {
	ingester Ingester
	identity model.ServiceIdentity
	logger   *slog.Logger
}

// NewTestRoutesHandler creates a handler reporting as service.TestServiceName.
func NewTestRoutesHandler(ingester Ingester, logger *slog.Logger) *TestRoutesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TestRoutesHandler{
		ingester: ingester,
		identity: model.ServiceIdentity{Name: "test routes", Service: service.TestServiceName},
		logger:   logger,
	}
}

// Level handles GET /test/{level}.
func (h *TestRoutesHandler) Level(w http.ResponseWriter, r *http.Request) {
	level := strings.ToLower(chi.URLParam(r, "level"))
	sample, ok := sampleReports[level]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown test level")
		return
	}

	ev, err := h.ingester.Ingest(r.Context(), h.identity, sample.payload(level))
	if err != nil {
		logAndInternalError(w, h.logger, "failed to send test error", "level", level, "error", err)
		return
	}

	writeOK(w, http.StatusCreated, map[string]any{
		"id":      ev.ID,
		"message": fmt.Sprintf("Test %s error sent successfully", level),
	})
}

// testResult summarises one synthesized event.
type testResult struct {
	Level   string  `json:"level"`
	ID      string  `json:"id"`
	Message *string `json:"message"`
}

// All handles GET /test/all, sending one event per level, most severe first.
func (h *TestRoutesHandler) All(w http.ResponseWriter, r *http.Request) {
	results := make([]testResult, 0, len(sampleReports))
	for _, level := range model.Levels() {
		ev, err := h.ingester.Ingest(r.Context(), h.identity, sampleReports[level].payload(level))
		if err != nil {
			logAndInternalError(w, h.logger, "failed to send test error", "level", level, "error", err)
			return
		}
		results = append(results, testResult{Level: ev.Level, ID: ev.ID, Message: ev.Message})
	}

	writeOK(w, http.StatusOK, map[string]any{
		"message": "All test errors have been sent",
		"results": results,
	})
}
