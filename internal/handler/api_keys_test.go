// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createKeyViaAPI(t *testing.T, f *fixture, name, svc string) map[string]any {
	t.Helper()
	rec := f.authed(t, http.MethodPost, "/api-keys", fmt.Sprintf(`{"name":%q,"service":%q}`, name, svc))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	assert.Contains(t, resp["message"], "Make sure to copy the key now")
	return resp["apiKey"].(map[string]any)
}

func TestAPIKeys_CreateAndList(t *testing.T) {
	f := newFixture(t)

	key := createKeyViaAPI(t, f, "Billing prod", "billing")
	raw, _ := key["key"].(string)
	assert.Regexp(t, `^avl_[0-9a-f]{36}$`, raw)
	assert.Equal(t, raw[:8], key["keyPrefix"])
	assert.Equal(t, true, key["isActive"])
	assert.Equal(t, "admin", key["createdBy"].(map[string]any)["username"])

	identity, err := f.gate.ResolveServiceIdentity(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "billing", identity.Service)

	createKeyViaAPI(t, f, "Search", "search")

	rec := f.authed(t, http.MethodGet, "/api-keys", "")
	require.Equal(t, http.StatusOK, rec.Code)
	keys := decode(t, rec)["apiKeys"].([]any)
	require.Len(t, keys, 2)
	assert.Equal(t, "search", keys[0].(map[string]any)["service"], "newest first")
	for _, k := range keys {
		_, hasKey := k.(map[string]any)["key"]
		assert.False(t, hasKey, "raw keys are never listed")
	}
}

func TestAPIKeys_CreateValidation(t *testing.T) {
	f := newFixture(t)
	requireError(t, f.authed(t, http.MethodPost, "/api-keys", `{"name":"only name"}`),
		http.StatusBadRequest, "Name and service are required")
	requireError(t, f.do(t, http.MethodPost, "/api-keys", `{"name":"a","service":"b"}`),
		http.StatusUnauthorized, "")
}

func TestAPIKeys_GetUpdateDelete(t *testing.T) {
	f := newFixture(t)
	key := createKeyViaAPI(t, f, "Billing", "billing")
	raw := key["key"].(string)
	path := fmt.Sprintf("/api-keys/%v", key["id"])

	rec := f.authed(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Billing", decode(t, rec)["apiKey"].(map[string]any)["name"])

	requireError(t, f.authed(t, http.MethodGet, "/api-keys/9999", ""), http.StatusNotFound, "API Key not found")
	requireError(t, f.authed(t, http.MethodGet, "/api-keys/abc", ""), http.StatusNotFound, "API Key not found")

	requireError(t, f.authed(t, http.MethodPut, path, `{}`), http.StatusBadRequest, "No data provided for update")

	rec = f.authed(t, http.MethodPut, path, `{"isActive":false,"name":"Billing (old)"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	assert.Equal(t, "API Key updated successfully", resp["message"])
	updated := resp["apiKey"].(map[string]any)
	assert.Equal(t, false, updated["isActive"])
	assert.Equal(t, "Billing (old)", updated["name"])

	_, err := f.gate.ResolveServiceIdentity(context.Background(), raw)
	assert.Error(t, err, "a deactivated key is rejected immediately")

	rec = f.authed(t, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "API Key deleted successfully", decode(t, rec)["message"])

	requireError(t, f.authed(t, http.MethodDelete, path, ""), http.StatusNotFound, "API Key not found")
}

func TestAPIKeys_Regenerate(t *testing.T) {
	f := newFixture(t)
	key := createKeyViaAPI(t, f, "Billing", "billing")
	oldRaw := key["key"].(string)

	rec := f.authed(t, http.MethodPost, fmt.Sprintf("/api-keys/%v/regenerate", key["id"]), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	assert.Contains(t, resp["message"], "regenerated successfully")
	newRaw := resp["apiKey"].(map[string]any)["key"].(string)
	require.NotEqual(t, oldRaw, newRaw)

	_, err := f.gate.ResolveServiceIdentity(context.Background(), oldRaw)
	assert.Error(t, err)
	_, err = f.gate.ResolveServiceIdentity(context.Background(), newRaw)
	assert.NoError(t, err)

	requireError(t, f.authed(t, http.MethodPost, "/api-keys/424242/regenerate", ""), http.StatusNotFound, "API Key not found")
}
