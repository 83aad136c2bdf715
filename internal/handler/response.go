// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers of the collector API.
// Every JSON response carries a "status" of "ok" or "error"; failures add a
// human-readable "message" and never expose internal details.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/avalon/internal/middleware"
	"github.com/olegiv/avalon/internal/service"
)

const (
	statusOK = "ok"

	msgInternal     = "Internal server error"
	msgInvalidJSON  = "Invalid JSON body"
	msgBodyTooLarge = "Request body too large"
	msgUnauthorized = "Authentication required"
)

// writeJSON writes data as JSON with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeOK writes a success response. data may be nil.
func writeOK(w http.ResponseWriter, statusCode int, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["status"] = statusOK
	writeJSON(w, statusCode, data)
}

// writeError writes a failure response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	middleware.WriteError(w, statusCode, message)
}

// logAndInternalError logs the failure and writes a generic 500 response.
func logAndInternalError(w http.ResponseWriter, logger *slog.Logger, logMsg string, args ...any) {
	logger.Error(logMsg, args...)
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// writeServiceError maps service errors to responses: validation failures
// become 400 with their message, ErrNotFound becomes 404 with notFoundMsg,
// and anything else is logged and reported as 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg, logMsg string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	default:
		logAndInternalError(w, logger, logMsg, "error", err)
	}
}

// decodeJSON decodes the request body into v. An empty body leaves v
// untouched. It writes the error response itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return false
	}
	writeError(w, http.StatusBadRequest, msgInvalidJSON)
	return false
}

// queryInt parses a query parameter. Missing or non-numeric values yield
// -1 so that the caller's defaults apply.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return -1
	}
	return v
}

// pathID parses a positive numeric URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
