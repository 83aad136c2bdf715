// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/olegiv/avalon/internal/model"
)

// ServiceResolver maps a raw API key to the service it reports for.
type ServiceResolver interface {
	ResolveServiceIdentity(ctx context.Context, rawKey string) (model.ServiceIdentity, error)
}

// UserResolver maps a raw session token to a dashboard user.
type UserResolver interface {
	ResolveUserIdentity(rawToken string) (model.Identity, error)
}

// Messages returned for rejected credentials.
const (
	msgMissingKey   = "API Key is required. Please provide a valid API Key in the X-API-Key header."
	msgInvalidKey   = "Invalid or inactive API Key."
	msgMissingToken = "No authorization header provided"
	msgInvalidToken = "Invalid or expired token"
)

// RequireServiceKey rejects requests without a valid service API key.
// The key is read from X-API-Key, falling back to an Authorization bearer value.
// Unknown and inactive keys produce the same response.
func RequireServiceKey(res ServiceResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if rawKey == "" {
				rawKey = bearerToken(r)
			}
			if rawKey == "" {
				WriteError(w, http.StatusUnauthorized, msgMissingKey)
				return
			}

			identity, err := res.ResolveServiceIdentity(r.Context(), rawKey)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, msgInvalidKey)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyService, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests without a valid session token in the
// Authorization header.
func RequireUser(res UserResolver) func(http.Handler) http.Handler {
	return requireUser(res, false)
}

// RequireUserOrQueryToken is RequireUser that also accepts a token query
// parameter, for websocket upgrades where browsers cannot set headers.
func RequireUserOrQueryToken(res UserResolver) func(http.Handler) http.Handler {
	return requireUser(res, true)
}

func requireUser(res UserResolver, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" && allowQuery {
				raw = strings.TrimSpace(r.URL.Query().Get("token"))
			}
			if raw == "" {
				WriteError(w, http.StatusUnauthorized, msgMissingToken)
				return
			}

			identity, err := res.ResolveUserIdentity(raw)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken returns the credential from "Authorization: Bearer <value>",
// or "" when the header is missing or uses another scheme.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

// GetUser returns the authenticated user from the request context.
func GetUser(r *http.Request) (model.Identity, bool) {
	identity, ok := r.Context().Value(ContextKeyUser).(model.Identity)
	return identity, ok
}

// GetService returns the authenticated service identity from the request context.
func GetService(r *http.Request) (model.ServiceIdentity, bool) {
	identity, ok := r.Context().Value(ContextKeyService).(model.ServiceIdentity)
	return identity, ok
}

// WithUser returns a copy of ctx carrying identity. Handlers use it in tests
// and internal routes that bypass RequireUser.
func WithUser(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyUser, identity)
}

// WithService returns a copy of ctx carrying a service identity.
func WithService(ctx context.Context, identity model.ServiceIdentity) context.Context {
	return context.WithValue(ctx, ContextKeyService, identity)
}
