// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package clock wraps time.Now so tests can pin or advance the clock
// without sleeping.
package clock

import (
	"sync"
	"time"
)

var (
	mu    sync.RWMutex
	nowFn = time.Now
)

// Now returns the current time from the active clock source.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFn()
}

// Since returns the elapsed time since t.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// Set replaces the clock source and returns a restore function.
// Intended for tests.
func Set(fn func() time.Time) (restore func()) {
	mu.Lock()
	nowFn = fn
	mu.Unlock()
	return func() {
		mu.Lock()
		nowFn = time.Now
		mu.Unlock()
	}
}
