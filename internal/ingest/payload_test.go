// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload_Valid(t *testing.T) {
	body := `{
		"service": "spoofed",
		"error": {"message": "boom", "stack": "at x", "path": "/api", "method": "POST"},
		"level": "critical",
		"metadata": {"user": 42, "tags": ["a"]},
		"extra": true
	}`

	p, err := DecodePayload(strings.NewReader(body))
	require.NoError(t, err)
	require.NotNil(t, p.Error)
	assert.Equal(t, "boom", *p.Error.Message)
	assert.Equal(t, "critical", *p.Level)
	assert.JSONEq(t, `{"user": 42, "tags": ["a"]}`, string(p.Metadata))
}

func TestDecodePayload_Empty(t *testing.T) {
	p, err := DecodePayload(strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Nil(t, p.Error)
	assert.Nil(t, p.Level)
	assert.Nil(t, p.Metadata)

	p, err = DecodePayload(strings.NewReader(`{"metadata": null, "error": null}`))
	require.NoError(t, err)
	assert.Nil(t, p.Metadata)
	assert.Nil(t, p.Error)
}

func TestDecodePayload_Malformed(t *testing.T) {
	tests := map[string]string{
		"empty body":          ``,
		"array body":          `[1,2]`,
		"string body":         `"hello"`,
		"broken json":         `{"level":`,
		"error not object":    `{"error": "boom"}`,
		"message not string":  `{"error": {"message": 42}}`,
		"level not string":    `{"level": 3}`,
		"metadata not object": `{"metadata": [1]}`,
		"metadata scalar":     `{"metadata": "x"}`,
		"trailing object":     `{} {}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePayload(strings.NewReader(body))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestPayload_Normalize(t *testing.T) {
	spoofed := "attacker"
	empty := ""
	msg := "boom"
	p := Payload{
		Service: &spoofed,
		Error:   &ErrorDetails{Message: &msg, Stack: &empty},
	}

	r := p.Normalize("billing")
	assert.Equal(t, "billing", r.Service, "service comes from the identity")
	assert.Equal(t, "error", r.Level, "missing level defaults to error")
	require.NotNil(t, r.Message)
	assert.Equal(t, "boom", *r.Message)
	assert.Nil(t, r.Stack, "empty strings become null")
	assert.Nil(t, r.Path)
	assert.Nil(t, r.Method)
}

func TestPayload_NormalizeKeepsUnknownLevel(t *testing.T) {
	lvl := "Trace"
	r := Payload{Level: &lvl}.Normalize("svc")
	assert.Equal(t, "Trace", r.Level)

	blank := ""
	r = Payload{Level: &blank}.Normalize("svc")
	assert.Equal(t, "error", r.Level)
}
