package lifecycle

import "sync/atomic"

// Action owns a single callback and invokes it at most once, at disposal.
//
// Take semantics: Dispose atomically swaps the callback slot to empty and
// invokes whatever it took, so even a storm of concurrent Dispose calls
// yields exactly one invocation.
type Action struct {
	fn atomic.Pointer[func()]
}

// NewAction takes ownership of fn. A nil fn yields an already-spent action.
func NewAction(fn func()) *Action {
	a := &Action{}
	if fn != nil {
		a.fn.Store(&fn)
	}
	return a
}

// Dispose takes the callback and invokes it. Later calls are no-ops.
func (a *Action) Dispose() {
	if p := a.fn.Swap(nil); p != nil {
		(*p)()
	}
}

// Disposed reports whether the callback slot is empty.
func (a *Action) Disposed() bool { return a.fn.Load() == nil }
