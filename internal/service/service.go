// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the management operations behind the HTTP API:
// error listing and deletion, API keys, accounts, and settings.
package service

import (
	"errors"
)

// ErrNotFound is returned when the addressed record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
