// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const (
	// maxClientMessage caps inbound frames; clients only send subscriptions.
	maxClientMessage = 4096
	pingInterval     = 30 * time.Second
)

// wsTransport adapts a websocket connection to Transport.
type wsTransport struct {
	conn *websocket.Conn
}

func (t wsTransport) Write(ctx context.Context, msg []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, msg)
}

func (t wsTransport) Close() error {
	return t.conn.CloseNow()
}

// Handler upgrades requests to websocket sessions registered with a Broker.
type Handler struct {
	broker *Broker
	accept *websocket.AcceptOptions
	logger *slog.Logger
}

// NewHandler creates a websocket endpoint. originPatterns lists the hosts
// allowed to connect cross-origin; "*" allows any.
func NewHandler(broker *Broker, originPatterns []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	opts := &websocket.AcceptOptions{OriginPatterns: originPatterns}
	for _, p := range originPatterns {
		if p == "*" {
			opts = &websocket.AcceptOptions{InsecureSkipVerify: true}
			break
		}
	}

	return &Handler{broker: broker, accept: opts, logger: logger}
}

// ServeHTTP runs the session until the client disconnects or the broker drops it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(maxClientMessage)

	session := h.broker.Register(wsTransport{conn: conn})
	defer h.broker.Unregister(session)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.keepAlive(ctx, conn, session)

	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status == -1 && !errors.Is(err, context.Canceled) && !session.Closed() {
				h.logger.Debug("websocket read failed", "session", session.ID(), "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		h.handleMessage(session, msg)
	}
}

func (h *Handler) handleMessage(session *Session, msg []byte) {
	cmd, ok := decodeCommand(msg)
	if !ok {
		h.logger.Debug("ignoring websocket message", "session", session.ID())
		return
	}

	if cmd.subscribe {
		h.broker.Subscribe(session, cmd.kind, cmd.topic)
	} else {
		h.broker.Unsubscribe(session, cmd.kind, cmd.topic)
	}
}

// keepAlive pings the peer so half-open connections are noticed.
func (h *Handler) keepAlive(ctx context.Context, conn *websocket.Conn, session *Session) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, h.broker.writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				h.broker.Unregister(session)
				return
			}
		}
	}
}
