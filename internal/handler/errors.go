// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/avalon/internal/ingest"
	"github.com/olegiv/avalon/internal/middleware"
	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/service"
)

// Ingester stores a report and runs its notifications.
type Ingester interface {
	Ingest(ctx context.Context, identity model.ServiceIdentity, p ingest.Payload) (model.ErrorEvent, error)
}

// ErrorsHandler serves error reporting and the error management routes.
type ErrorsHandler struct {
	ingester Ingester
	errors   *service.ErrorService
	logger   *slog.Logger
}

// NewErrorsHandler creates a new ErrorsHandler.
func NewErrorsHandler(ingester Ingester, errs *service.ErrorService, logger *slog.Logger) *ErrorsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorsHandler{ingester: ingester, errors: errs, logger: logger}
}

// Report handles POST /report. The event is always stored under the service
// bound to the caller's API key, whatever the payload claims.
func (h *ErrorsHandler) Report(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetService(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	payload, err := ingest.DecodePayload(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		h.logger.Debug("rejected error report", "service", identity.Service, "error", err)
		writeError(w, http.StatusBadRequest, "Invalid error payload")
		return
	}

	ev, err := h.ingester.Ingest(r.Context(), identity, payload)
	if err != nil {
		logAndInternalError(w, h.logger, "failed to ingest error report", "service", identity.Service, "error", err)
		return
	}

	writeOK(w, http.StatusCreated, map[string]any{"id": ev.ID})
}

// List handles GET /errors?take=&skip=.
func (h *ErrorsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.errors.List(r.Context(), queryInt(r, "take"), queryInt(r, "skip"))
	if err != nil {
		logAndInternalError(w, h.logger, "failed to list errors", "error", err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"items": items})
}

// Get handles GET /errors/{id}.
func (h *ErrorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ev, err := h.errors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Error not found", "failed to get error")
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"item": ev})
}

// Stats handles GET /errors/stats.
func (h *ErrorsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.errors.Stats(r.Context())
	if err != nil {
		logAndInternalError(w, h.logger, "failed to compute error stats", "error", err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"stats": stats})
}

// Delete handles DELETE /errors/{id}.
func (h *ErrorsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.errors.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, "Error not found", "failed to delete error")
		return
	}

	h.logger.Info("error deleted", "id", id)
	writeOK(w, http.StatusOK, map[string]any{"message": "Error deleted successfully"})
}

// DeleteAll handles DELETE /errors.
func (h *ErrorsHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.errors.DeleteAll(r.Context())
	if err != nil {
		logAndInternalError(w, h.logger, "failed to delete errors", "error", err)
		return
	}

	h.logger.Info("all errors deleted", "count", n)
	writeOK(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("%d error(s) deleted successfully", n),
		"count":   n,
	})
}

// DeleteByService handles DELETE /errors/service/{service}.
func (h *ErrorsHandler) DeleteByService(w http.ResponseWriter, r *http.Request) {
	svc := chi.URLParam(r, "service")
	n, err := h.errors.DeleteByService(r.Context(), svc)
	if err != nil {
		writeServiceError(w, h.logger, err, "Service not found", "failed to delete service errors")
		return
	}

	h.logger.Info("service errors deleted", "service", svc, "count", n)
	writeOK(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("%d error(s) deleted for service %s", n, svc),
		"count":   n,
	})
}
