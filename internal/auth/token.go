// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/olegiv/avalon/internal/model"
)

// TokenTTL is how long a session token stays valid.
const TokenTTL = 24 * time.Hour

// Claims is the session token payload.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer with the default TTL.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (ti *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	c := *ti
	c.now = now
	return &c
}

// Issue signs a token for the identity and returns it with its expiry.
func (ti *TokenIssuer) Issue(id model.Identity) (string, time.Time, error) {
	now := ti.now()
	exp := now.Add(ti.ttl)

	claims := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies signature, algorithm, and expiry of a raw token.
// Every failure is reported as ErrUnauthenticated.
func (ti *TokenIssuer) Parse(raw string) (model.Identity, error) {
	if raw == "" {
		return model.Identity{}, ErrUnauthenticated
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return ti.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.UserID == 0 || claims.Username == "" {
		return model.Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, errors.New("token has no subject"))
	}

	return model.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
