// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package realtime fans stored error events out to live dashboard sessions.
//
// Every session receives error:new. Sessions subscribed to the event's
// service additionally receive error:service, and sessions subscribed to its
// level receive error:level. Delivery is best effort: nothing is buffered or
// retried, and a session whose write fails is dropped.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/avalon/internal/id"
	"github.com/olegiv/avalon/internal/model"
)

// DefaultWriteTimeout bounds a single write to a session.
const DefaultWriteTimeout = 5 * time.Second

// TopicKind selects the service or level topic namespace.
type TopicKind int

const (
	TopicService TopicKind = iota
	TopicLevel
)

func (k TopicKind) String() string {
	if k == TopicLevel {
		return "level"
	}
	return "service"
}

type membership struct {
	session  *Session
	services map[string]struct{}
	levels   map[string]struct{}
}

func (m *membership) topics(kind TopicKind) map[string]struct{} {
	if kind == TopicLevel {
		return m.levels
	}
	return m.services
}

// Broker is the in-process registry of live sessions and their topics.
type Broker struct {
	mu       sync.RWMutex
	sessions map[int64]*membership
	topics   [2]map[string]map[int64]*Session

	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewBroker creates an empty broker. A non-positive writeTimeout selects
// DefaultWriteTimeout.
func NewBroker(writeTimeout time.Duration, logger *slog.Logger) *Broker {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		sessions: make(map[int64]*membership),
		topics: [2]map[string]map[int64]*Session{
			TopicService: make(map[string]map[int64]*Session),
			TopicLevel:   make(map[string]map[int64]*Session),
		},
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Register adds a connected transport with no subscriptions.
func (b *Broker) Register(t Transport) *Session {
	s := &Session{id: id.New(), transport: t}

	b.mu.Lock()
	b.sessions[s.id] = &membership{
		session:  s,
		services: make(map[string]struct{}),
		levels:   make(map[string]struct{}),
	}
	count := len(b.sessions)
	b.mu.Unlock()

	b.logger.Debug("realtime session connected", "session", s.id, "clients", count)
	return s
}

// Unregister removes a session and all its memberships and closes its
// transport. Calling it more than once is harmless.
func (b *Broker) Unregister(s *Session) {
	b.mu.Lock()
	m, ok := b.sessions[s.id]
	if ok {
		delete(b.sessions, s.id)
		for kind := range b.topics {
			for name := range m.topics(TopicKind(kind)) {
				b.leaveLocked(TopicKind(kind), name, s.id)
			}
		}
	}
	count := len(b.sessions)
	b.mu.Unlock()

	s.close()
	if ok {
		b.logger.Debug("realtime session disconnected", "session", s.id, "clients", count)
	}
}

func (b *Broker) leaveLocked(kind TopicKind, name string, sid int64) {
	members := b.topics[kind][name]
	delete(members, sid)
	if len(members) == 0 {
		delete(b.topics[kind], name)
	}
}

// Subscribe joins a topic. Names match exactly. Empty names and unknown
// sessions are ignored.
func (b *Broker) Subscribe(s *Session, kind TopicKind, name string) {
	if name == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.sessions[s.id]
	if !ok {
		return
	}
	m.topics(kind)[name] = struct{}{}
	members := b.topics[kind][name]
	if members == nil {
		members = make(map[int64]*Session)
		b.topics[kind][name] = members
	}
	members[s.id] = s
}

// Unsubscribe leaves a topic. Leaving a topic that was never joined is a no-op.
func (b *Broker) Unsubscribe(s *Session, kind TopicKind, name string) {
	if name == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.sessions[s.id]
	if !ok {
		return
	}
	if _, joined := m.topics(kind)[name]; !joined {
		return
	}
	delete(m.topics(kind), name)
	b.leaveLocked(kind, name, s.id)
}

// Subscriptions returns the topic names a session has joined, in no particular order.
func (b *Broker) Subscriptions(s *Session, kind TopicKind) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, ok := b.sessions[s.id]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m.topics(kind)))
	for name := range m.topics(kind) {
		names = append(names, name)
	}
	return names
}

// Count returns the number of connected sessions.
func (b *Broker) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// delivery is the ordered list of frames one session receives for one publish.
type delivery struct {
	session *Session
	frames  [][]byte
}

// Publish delivers ev to all sessions and to the service and level topic
// members. It returns after every write has finished or failed.
func (b *Broker) Publish(ctx context.Context, ev model.ErrorEvent) error {
	newFrame, err := EncodeFrame(EventErrorNew, ev)
	if err != nil {
		return err
	}
	serviceFrame, err := EncodeFrame(EventErrorService, ev)
	if err != nil {
		return err
	}
	levelFrame, err := EncodeFrame(EventErrorLevel, ev)
	if err != nil {
		return err
	}

	b.mu.RLock()
	targets := make([]delivery, 0, len(b.sessions))
	for _, m := range b.sessions {
		d := delivery{session: m.session, frames: [][]byte{newFrame}}
		if _, ok := m.services[ev.Service]; ok {
			d.frames = append(d.frames, serviceFrame)
		}
		if _, ok := m.levels[ev.Level]; ok {
			d.frames = append(d.frames, levelFrame)
		}
		targets = append(targets, d)
	}
	b.mu.RUnlock()

	b.deliver(ctx, targets)
	return nil
}

// Broadcast sends one event to every connected session.
func (b *Broker) Broadcast(ctx context.Context, event string, data any) error {
	frame, err := EncodeFrame(event, data)
	if err != nil {
		return err
	}

	b.mu.RLock()
	targets := make([]delivery, 0, len(b.sessions))
	for _, m := range b.sessions {
		targets = append(targets, delivery{session: m.session, frames: [][]byte{frame}})
	}
	b.mu.RUnlock()

	b.deliver(ctx, targets)
	return nil
}

// deliver writes to all targets concurrently and drops sessions whose write
// fails. The caller's cancellation is ignored: only a failing subscriber ends
// a session.
func (b *Broker) deliver(ctx context.Context, targets []delivery) {
	ctx = context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for _, d := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.session.write(ctx, b.writeTimeout, d.frames...)
			if err == nil || errors.Is(err, errSessionClosed) {
				return
			}
			b.logger.Debug("dropping realtime session after failed write", "session", d.session.id, "error", err)
			b.Unregister(d.session)
		}()
	}
	wg.Wait()
}

// Close disconnects every session.
func (b *Broker) Close() {
	b.mu.RLock()
	sessions := make([]*Session, 0, len(b.sessions))
	for _, m := range b.sessions {
		sessions = append(sessions, m.session)
	}
	b.mu.RUnlock()

	for _, s := range sessions {
		b.Unregister(s)
	}
}
