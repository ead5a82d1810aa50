package lifecycle

import (
	"sync"
	"sync/atomic"
)

// Guard is a dispose-once cell around a teardown hook.
//
// The zero value is usable as a guard with no teardown. Guard must not be
// copied after first use.
type Guard struct {
	mu       sync.Mutex
	teardown func()
	disposed atomic.Bool
}

// NewGuard returns a guard that will run teardown exactly once.
// A nil teardown is allowed.
func NewGuard(teardown func()) *Guard {
	return &Guard{teardown: teardown}
}

// Dispose runs the teardown hook if it has not run yet.
// It returns true for the single call that performed the teardown.
//
// Concurrent callers serialize on the guard: losers block until the winning
// teardown has finished and then return false. A panicking teardown still
// marks the guard disposed.
func (g *Guard) Dispose() (won bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed.Load() {
		return false
	}
	fn := g.teardown
	g.teardown = nil
	if fn != nil {
		// The named result keeps the winner's true across the recover.
		defer func() { _ = recover() }()
	}
	g.disposed.Store(true)
	won = true
	if fn != nil {
		fn()
	}
	return won
}

// Disposed reports whether Dispose has won on this guard.
// Safe to call from any goroutine without taking the guard lock.
func (g *Guard) Disposed() bool { return g.disposed.Load() }
