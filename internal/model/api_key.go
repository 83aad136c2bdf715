// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	// APIKeyPrefix starts every generated service key.
	APIKeyPrefix = "avl_"
	// APIKeyRandomBytes is the amount of entropy in a key (36 hex chars).
	APIKeyRandomBytes = 18
	// APIKeyPrefixLength is how much of the raw key is kept for display.
	APIKeyPrefixLength = 8
)

// APIKey is a service credential as exposed by the management API.
// The raw key is only set right after creation or regeneration.
type APIKey struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key,omitempty"`
	KeyPrefix  string     `json:"keyPrefix"`
	Service    string     `json:"service"`
	IsActive   bool       `json:"isActive"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	CreatedBy  *UserRef   `json:"createdBy"`
}

// UserRef is the short form of a user embedded in other resources.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// GenerateAPIKey generates a new random service key.
// Returns the raw key (to show the user once) and its display prefix.
func GenerateAPIKey() (rawKey string, prefix string, err error) {
	b := make([]byte, APIKeyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}

	rawKey = APIKeyPrefix + hex.EncodeToString(b)
	return rawKey, KeyDisplayPrefix(rawKey), nil
}

// KeyDisplayPrefix returns the first APIKeyPrefixLength characters of a raw key.
func KeyDisplayPrefix(rawKey string) string {
	if len(rawKey) <= APIKeyPrefixLength {
		return rawKey
	}
	return rawKey[:APIKeyPrefixLength]
}

// HashAPIKey creates a SHA-256 hash of the API key for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
