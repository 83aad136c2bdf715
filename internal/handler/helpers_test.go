// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/avalon/internal/auth"
	"github.com/olegiv/avalon/internal/cache"
	"github.com/olegiv/avalon/internal/ingest"
	"github.com/olegiv/avalon/internal/middleware"
	"github.com/olegiv/avalon/internal/model"
	"github.com/olegiv/avalon/internal/service"
	"github.com/olegiv/avalon/internal/store"
	"github.com/olegiv/avalon/internal/testutil"
)

const testPassword = "correct-horse-battery"

// recorder collects the events that reached the notification stage.
type recorder struct {
	mu     sync.Mutex
	events []model.ErrorEvent
}

func (r *recorder) record(_ context.Context, ev model.ErrorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) all() []model.ErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ErrorEvent(nil), r.events...)
}

// fixture wires the handlers to a real database the way the server does.
type fixture struct {
	q        *store.Queries
	gate     *auth.Gate
	notified *recorder
	router   chi.Router
	user     store.User
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := testutil.TestLogger()
	q := store.New(testutil.TestDB(t))
	tokens := auth.NewTokenIssuer(testutil.TestSecret)
	gate := auth.NewGate(q, tokens, logger)
	t.Cleanup(gate.Wait)

	c := cache.NewMemoryCache(time.Minute, 0)
	t.Cleanup(func() { _ = c.Close() })

	errs := service.NewErrorService(q, c, time.Minute, nil, service.Paging{Default: 50, Max: 100}, logger)
	notified := &recorder{}
	coord := ingest.NewCoordinator(q, logger,
		ingest.Stage{Name: "stats", Run: errs.InvalidateStats},
		ingest.Stage{Name: "record", Run: notified.record},
	)

	protection := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       1000,
		IPBurst:           1000,
		MaxFailedAttempts: 3,
	})
	t.Cleanup(protection.Stop)

	errorsH := NewErrorsHandler(coord, errs, logger)
	authH := NewAuthHandler(service.NewAccountService(q, tokens, logger), protection, logger)
	keysH := NewAPIKeysHandler(service.NewAPIKeyService(q), logger)
	settingsH := NewSettingsHandler(service.NewSettingsService(q, model.Settings{}, false), logger)
	testH := NewTestRoutesHandler(coord, logger)

	r := chi.NewRouter()
	r.Get("/", Root)
	r.With(middleware.RequireServiceKey(gate)).Post("/report", errorsH.Report)
	r.Route("/auth", func(r chi.Router) {
		r.With(protection.Middleware()).Post("/login", authH.Login)
		r.With(middleware.RequireUser(gate)).Get("/verify", authH.Verify)
		r.With(middleware.RequireUser(gate)).Get("/profile", authH.Profile)
		r.With(middleware.RequireUser(gate)).Put("/profile", authH.UpdateProfile)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser(gate))
		r.Get("/errors", errorsH.List)
		r.Get("/errors/stats", errorsH.Stats)
		r.Get("/errors/{id}", errorsH.Get)
		r.Delete("/errors", errorsH.DeleteAll)
		r.Delete("/errors/{id}", errorsH.Delete)
		r.Delete("/errors/service/{service}", errorsH.DeleteByService)
		r.Get("/api-keys", keysH.List)
		r.Post("/api-keys", keysH.Create)
		r.Get("/api-keys/{id}", keysH.Get)
		r.Put("/api-keys/{id}", keysH.Update)
		r.Delete("/api-keys/{id}", keysH.Delete)
		r.Post("/api-keys/{id}/regenerate", keysH.Regenerate)
		r.Get("/settings", settingsH.Get)
		r.Put("/settings", settingsH.Update)
	})
	r.Get("/test/all", testH.All)
	r.Get("/test/{level}", testH.Level)

	user := testutil.CreateUser(t, q, "admin", testPassword)
	token, _, err := tokens.Issue(model.Identity{UserID: user.ID, Username: user.Username})
	require.NoError(t, err)

	return &fixture{q: q, gate: gate, notified: notified, router: r, user: user, token: token}
}

// do sends a request. Headers are given as name, value pairs.
func (f *fixture) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// authed sends a request as the fixture's admin user.
func (f *fixture) authed(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, method, target, body, "Authorization", "Bearer "+f.token)
}

// decode unmarshals a JSON response body into a generic map.
func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

// requireError asserts a failure response with the given code and message.
func requireError(t *testing.T, rec *httptest.ResponseRecorder, code int, message string) {
	t.Helper()
	require.Equal(t, code, rec.Code, "body: %s", rec.Body.String())
	body := decode(t, rec)
	require.Equal(t, "error", body["status"])
	if message != "" {
		require.Equal(t, message, body["message"])
	}
}
