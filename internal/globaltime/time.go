// Package globaltime is the process-wide clock. Production code reads
// time through it so tests can pin the clock without plumbing a clock
// value through every constructor.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu    sync.RWMutex
	clock func() time.Time = time.Now
)

// Now returns the current time from the active clock.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return clock()
}

// UTC returns the current time in UTC. Timestamps written to the store
// go through this so rows compare cleanly regardless of host timezone.
func UTC() time.Time {
	return Now().UTC()
}

// Freeze pins the clock to a fixed instant until Unfreeze is called.
// Test helper; never call it from production code.
func Freeze(instant time.Time) {
	mu.Lock()
	defer mu.Unlock()
	clock = func() time.Time { return instant }
}

// Unfreeze restores the real clock.
func Unfreeze() {
	mu.Lock()
	defer mu.Unlock()
	clock = time.Now
}
