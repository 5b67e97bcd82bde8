// Package cue limits how often cues fire and works out when a cue has to start.
package cue

import (
	"sync"
	"time"
)

// Gate is the population-wide chatter limiter. At most one cue may fire per interval,
// whichever aircraft it is for.
type Gate struct {
	mu        sync.Mutex
	interval  time.Duration
	lastFired time.Time
	fired     bool
}

// NewGate creates a gate allowing perHour firings per hour
func NewGate(perHour float64) *Gate {
	return &Gate{
		interval: time.Duration(3600 / perHour * float64(time.Second)),
	}
}

// Interval is the minimum spacing between firings
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Allowed reports whether a cue may fire at now. A gate that never fired is open.
func (g *Gate) Allowed(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allowedLocked(now)
}

func (g *Gate) allowedLocked(now time.Time) bool {
	return !g.fired || now.Sub(g.lastFired) >= g.interval
}

// TimeUntilAllowed returns the remaining wait, never negative
func (g *Gate) TimeUntilAllowed(now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.fired {
		return 0
	}
	wait := g.interval - now.Sub(g.lastFired)
	if wait < 0 {
		return 0
	}
	return wait
}

// TryFire records a firing at now if the gate is open. The check and the update happen
// under one lock, so two callers can never both succeed within an interval.
func (g *Gate) TryFire(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allowedLocked(now) {
		return false
	}
	g.lastFired = now
	g.fired = true
	return true
}

// Restore seeds the last firing time, typically from the cue log after a restart
func (g *Gate) Restore(lastFired time.Time) {
	if lastFired.IsZero() {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.fired || lastFired.After(g.lastFired) {
		g.lastFired = lastFired
		g.fired = true
	}
}

// LastFired returns the most recent firing
func (g *Gate) LastFired() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastFired, g.fired
}
