// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for credential checks,
// rate limiting, and response hardening of the collector API.
package middleware

import (
	"encoding/json"
	"net/http"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for authenticated identities.
const (
	ContextKeyUser    ContextKey = "user"
	ContextKeyService ContextKey = "service"
)

// ErrorResponse is the body of every failed API response.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Status: "error", Message: message})
}
