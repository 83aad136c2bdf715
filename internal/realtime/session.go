// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// errSessionClosed is returned by writes to a session that was torn down.
var errSessionClosed = errors.New("session closed")

// Transport is the connection behind a session.
type Transport interface {
	// Write sends one text message. It must honour ctx cancellation.
	Write(ctx context.Context, msg []byte) error
	// Close terminates the connection. It may be called while a Write is in progress.
	Close() error
}

// Session is one live subscriber.
type Session struct {
	id        int64
	transport Transport

	writeMu sync.Mutex // serialises writes so frames keep their order
	closed  atomic.Bool
}

// ID returns the session's unique identifier.
func (s *Session) ID() int64 {
	return s.id
}

// Closed reports whether the session was torn down.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// write sends msgs in order, each bounded by timeout. Writing to a closed
// session is a no-op.
func (s *Session) write(ctx context.Context, timeout time.Duration, msgs ...[]byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, msg := range msgs {
		if s.closed.Load() {
			return errSessionClosed
		}
		wctx, cancel := context.WithTimeout(ctx, timeout)
		err := s.transport.Write(wctx, msg)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// close marks the session closed and closes the transport once.
func (s *Session) close() bool {
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}
	_ = s.transport.Close()
	return true
}
