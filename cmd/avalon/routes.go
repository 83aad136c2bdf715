// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/avalon/internal/handler"
	"github.com/olegiv/avalon/internal/middleware"
	"github.com/olegiv/avalon/internal/realtime"
)

// router builds the HTTP routes.
func (a *app) router() http.Handler {
	errorsHandler := handler.NewErrorsHandler(a.coordinator, a.errors, a.logger)
	authHandler := handler.NewAuthHandler(a.accounts, a.protection, a.logger)
	keysHandler := handler.NewAPIKeysHandler(a.keys, a.logger)
	settingsHandler := handler.NewSettingsHandler(a.settings, a.logger)
	healthHandler := handler.NewHealthHandler(a.queries, a.broker, a.logger)
	wsHandler := realtime.NewHandler(a.broker, a.cfg.AllowedOrigins, a.logger)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(a.cfg.IsDevelopment())))
	r.Use(middleware.CORS(a.cfg.AllowedOrigins))
	r.Use(middleware.BodyLimit(a.cfg.BodyLimit))

	r.Get("/", handler.Root)
	r.Get("/health", healthHandler.Health)

	// Ingestion: key first so the limiter can bucket by key.
	r.With(
		middleware.RequireServiceKey(a.gate),
		middleware.ReportRateLimit(a.cfg.ReportRate, a.cfg.ReportBurst),
	).Post("/report", errorsHandler.Report)

	r.Route("/auth", func(r chi.Router) {
		r.With(a.protection.Middleware()).Post("/login", authHandler.Login)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(a.gate))
			r.Get("/verify", authHandler.Verify)
			r.Get("/profile", authHandler.Profile)
			r.Put("/profile", authHandler.UpdateProfile)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser(a.gate))

		r.Route("/errors", func(r chi.Router) {
			r.Get("/", errorsHandler.List)
			r.Delete("/", errorsHandler.DeleteAll)
			r.Get("/stats", errorsHandler.Stats)
			r.Delete("/service/{service}", errorsHandler.DeleteByService)
			r.Get("/{id}", errorsHandler.Get)
			r.Delete("/{id}", errorsHandler.Delete)
		})

		r.Route("/api-keys", func(r chi.Router) {
			r.Get("/", keysHandler.List)
			r.Post("/", keysHandler.Create)
			r.Get("/{id}", keysHandler.Get)
			r.Put("/{id}", keysHandler.Update)
			r.Delete("/{id}", keysHandler.Delete)
			r.Post("/{id}/regenerate", keysHandler.Regenerate)
		})

		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Update)
	})

	// Browsers cannot set headers on a websocket handshake.
	r.With(middleware.RequireUserOrQueryToken(a.gate)).Get("/ws", wsHandler.ServeHTTP)

	if a.cfg.IsDevelopment() {
		testHandler := handler.NewTestRoutesHandler(a.coordinator, a.logger)
		r.Get("/test/all", testHandler.All)
		r.Get("/test/{level}", testHandler.Level)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Route not found")
	})

	return r
}
