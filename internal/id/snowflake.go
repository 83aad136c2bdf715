// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package id generates time-ordered numeric identifiers for live sessions.
package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

// DefaultNode is used when Init was never called.
const DefaultNode int64 = 1

var (
	node *snowflake.Node
	once sync.Once
	err  error
)

// Init initializes the Snowflake node with the given node ID.
// Only the first call has any effect.
func Init(nodeID int64) error {
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new unique int64 ID.
func New() int64 {
	if Init(DefaultNode) != nil {
		panic("id: snowflake node not initialised: " + err.Error())
	}
	return node.Generate().Int64()
}
