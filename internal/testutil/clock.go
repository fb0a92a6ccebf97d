package testutil

import (
	"fmt"
	"sync"
	"time"
)

// Epoch is the instant every ManualClock from FixedClock starts at.
var Epoch = time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)

// ManualClock only moves when a test tells it to, so elapsed times in run
// summaries are exact.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// FixedClock returns a ManualClock at Epoch.
func FixedClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d, for example from inside a copy
// phase to simulate a long run.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// RunIDs hands out predictable run ids ("run-1", "run-2", ...), which also
// name the per-run error log.
type RunIDs struct {
	mu   sync.Mutex
	next int
}

func NewRunIDs() *RunIDs {
	return &RunIDs{}
}

func (g *RunIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("run-%d", g.next)
}
