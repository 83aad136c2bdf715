// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package id

import (
	"sync"
	"testing"
)

func TestNew_Unique(t *testing.T) {
	const n = 1000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, n)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range n / 4 {
				v := New()
				mu.Lock()
				seen[v] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("got %d unique ids, want %d", len(seen), n)
	}
}

func TestNew_Increasing(t *testing.T) {
	a := New()
	b := New()
	if b <= a {
		t.Fatalf("New() = %d after %d, want increasing", b, a)
	}
}
