// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package realtime

import (
	"encoding/json"
)

// Server to client events.
const (
	EventErrorNew      = "error:new"
	EventErrorService  = "error:service"
	EventErrorLevel    = "error:level"
	EventErrorsDeleted = "errors:deleted"
)

// Client to server events.
const (
	EventSubscribeService   = "subscribe:service"
	EventUnsubscribeService = "unsubscribe:service"
	EventSubscribeLevel     = "subscribe:level"
	EventUnsubscribeLevel   = "unsubscribe:level"
)

// Frame is one JSON text message on the socket.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeFrame marshals an outgoing frame.
func EncodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// command is a decoded subscription request.
type command struct {
	kind      TopicKind
	subscribe bool
	topic     string
}

// decodeCommand parses a client frame. ok is false for unknown events and
// non-string payloads.
func decodeCommand(msg []byte) (cmd command, ok bool) {
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return cmd, false
	}

	switch f.Event {
	case EventSubscribeService:
		cmd = command{kind: TopicService, subscribe: true}
	case EventUnsubscribeService:
		cmd = command{kind: TopicService}
	case EventSubscribeLevel:
		cmd = command{kind: TopicLevel, subscribe: true}
	case EventUnsubscribeLevel:
		cmd = command{kind: TopicLevel}
	default:
		return cmd, false
	}

	if err := json.Unmarshal(f.Data, &cmd.topic); err != nil {
		return cmd, false
	}
	return cmd, true
}
