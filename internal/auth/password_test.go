// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("passwordAdmin")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$") {
		t.Fatalf("HashPassword returned unexpected encoding: %s", hash)
	}

	other, _ := HashPassword("passwordAdmin")
	if hash == other {
		t.Fatal("HashPassword reused a salt")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("passwordAdmin")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	tests := []struct {
		password string
		want     bool
	}{
		{"passwordAdmin", true},
		{"passwordadmin", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			got, err := CheckPassword(tt.password, hash)
			if err != nil {
				t.Fatalf("CheckPassword error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckPassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestCheckPassword_OtherParameters(t *testing.T) {
	// Generated with m=65536,t=1,p=4 for "changeme".
	dbHash := "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544"

	valid, err := CheckPassword("changeme", dbHash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if !valid {
		t.Fatal("hash rejected correct password")
	}
	if !NeedsRehash(dbHash) {
		t.Error("NeedsRehash() = false for non-default parameters")
	}
}

func TestCheckPassword_InvalidHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$bcrypt$x$y$z$w", "$argon2id$v=19$m=x$a$b"} {
		if _, err := CheckPassword("x", h); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("CheckPassword(%q) error = %v, want ErrInvalidHash", h, err)
		}
	}
}

func TestNeedsRehash_CurrentDefaults(t *testing.T) {
	hash, _ := HashPassword("x")
	if NeedsRehash(hash) {
		t.Error("NeedsRehash() = true for a fresh hash")
	}
}
