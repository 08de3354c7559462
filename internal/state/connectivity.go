package state

import (
	"fmt"
	"sync"
	"time"
)

// offlineThreshold is the number of consecutive failed probes after which the
// API is considered unreachable.
const offlineThreshold = 2

// ConnectivitySnapshot is the latest probe outcome available to the UI.
type ConnectivitySnapshot struct {
	LastChecked         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the API has been unreachable for multiple probes.
func (s ConnectivitySnapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= offlineThreshold
}

// Connectivity records API reachability probes.
type Connectivity struct {
	mu       sync.RWMutex
	snapshot ConnectivitySnapshot
	notifier
}

// Record stores a probe result. It reports whether the offline state flipped.
func (c *Connectivity) Record(err error) bool {
	c.mu.Lock()
	wasOffline := c.snapshot.IsOffline()
	c.snapshot.LastChecked = time.Now()
	if err != nil {
		c.snapshot.LastError = err
		c.snapshot.ConsecutiveFailures++
	} else {
		c.snapshot.LastError = nil
		c.snapshot.ConsecutiveFailures = 0
	}
	flipped := wasOffline != c.snapshot.IsOffline()
	c.mu.Unlock()

	if flipped {
		c.broadcast()
	}
	return flipped
}

// Snapshot returns a copy of the current snapshot.
func (c *Connectivity) Snapshot() ConnectivitySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := c.snapshot
	if c.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", c.snapshot.LastError)
	}
	return snap
}
