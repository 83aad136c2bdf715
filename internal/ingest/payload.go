// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/olegiv/avalon/internal/model"
)

// ErrInvalidPayload is returned for bodies that are not a well-formed report.
var ErrInvalidPayload = errors.New("invalid payload")

// ErrorDetails is the nested "error" object of a report.
type ErrorDetails struct {
	Message *string `json:"message"`
	Stack   *string `json:"stack"`
	Path    *string `json:"path"`
	Method  *string `json:"method"`
}

// Payload is the body of POST /report. Every field is optional.
// Service is accepted for compatibility but never trusted.
type Payload struct {
	Service  *string         `json:"service"`
	Error    *ErrorDetails   `json:"error"`
	Level    *string         `json:"level"`
	Metadata json.RawMessage `json:"metadata"`
}

// DecodePayload reads a single JSON object from r. Type mismatches, a
// non-object body, or non-object metadata yield ErrInvalidPayload.
func DecodePayload(r io.Reader) (Payload, error) {
	var p Payload

	body, err := io.ReadAll(r)
	if err != nil {
		return p, fmt.Errorf("%w: reading body: %w", ErrInvalidPayload, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return p, fmt.Errorf("%w: body must be a JSON object", ErrInvalidPayload)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if dec.More() {
		return p, fmt.Errorf("%w: trailing data after object", ErrInvalidPayload)
	}

	if err := p.validateMetadata(); err != nil {
		return p, err
	}
	return p, nil
}

func (p *Payload) validateMetadata() error {
	m := bytes.TrimSpace(p.Metadata)
	if len(m) == 0 || bytes.Equal(m, []byte("null")) {
		p.Metadata = nil
		return nil
	}
	if m[0] != '{' {
		return fmt.Errorf("%w: metadata must be an object", ErrInvalidPayload)
	}
	p.Metadata = m
	return nil
}

// Report is a normalized payload ready to be stored.
type Report struct {
	Service  string
	Level    string
	Message  *string
	Stack    *string
	Path     *string
	Method   *string
	Metadata json.RawMessage
}

// Normalize binds the payload to the authenticated service, applies the
// default level, and turns empty strings into nulls.
func (p Payload) Normalize(service string) Report {
	r := Report{
		Service:  service,
		Level:    model.DefaultLevel,
		Metadata: p.Metadata,
	}
	if p.Level != nil && *p.Level != "" {
		r.Level = *p.Level
	}
	if p.Error != nil {
		r.Message = nonEmpty(p.Error.Message)
		r.Stack = nonEmpty(p.Error.Stack)
		r.Path = nonEmpty(p.Error.Path)
		r.Method = nonEmpty(p.Error.Method)
	}
	return r
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
