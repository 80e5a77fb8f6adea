// Package debounce coalesces bursts of identical triggers: only the last
// call within the window runs. Used to keep rapid duplicate protocol
// events from flooding a customer with the same menu or greeting.
package debounce

import (
	"sync"
	"time"
)

// Group debounces funcs per key with a shared delay.
type Group struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
}

// NewGroup creates a debounce group with the given trailing delay.
func NewGroup(delay time.Duration) *Group {
	return &Group{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// Do schedules fn for key, cancelling any earlier pending fn for the
// same key.
func (g *Group) Do(key string, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t, ok := g.timers[key]; ok {
		t.Stop()
	}
	g.timers[key] = time.AfterFunc(g.delay, func() {
		g.mu.Lock()
		delete(g.timers, key)
		g.mu.Unlock()
		fn()
	})
}

// Cancel drops a pending call for key, if any.
func (g *Group) Cancel(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.timers[key]; ok {
		t.Stop()
		delete(g.timers, key)
	}
}
