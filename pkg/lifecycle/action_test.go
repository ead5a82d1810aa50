package lifecycle

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestActionInvokedAtMostOnce(t *testing.T) {
	var runs atomic.Int64
	a := NewAction(func() { runs.Add(1) })

	if a.Disposed() {
		t.Fatalf("fresh action reports disposed")
	}
	a.Dispose()
	a.Dispose()
	if got := runs.Load(); got != 1 {
		t.Fatalf("callback ran %d times, want 1", got)
	}
	if !a.Disposed() {
		t.Fatalf("action not marked disposed")
	}
}

func TestActionConcurrentDispose(t *testing.T) {
	var runs atomic.Int64
	a := NewAction(func() { runs.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Dispose()
		}()
	}
	wg.Wait()

	if got := runs.Load(); got != 1 {
		t.Fatalf("callback ran %d times, want 1", got)
	}
}

func TestActionNilCallback(t *testing.T) {
	a := NewAction(nil)
	if !a.Disposed() {
		t.Fatalf("nil-callback action should start spent")
	}
	a.Dispose() // must not panic
}
