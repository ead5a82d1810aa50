package lifecycle

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGuardDisposeOnce(t *testing.T) {
	var runs atomic.Int64
	g := NewGuard(func() { runs.Add(1) })

	if g.Disposed() {
		t.Fatalf("fresh guard reports disposed")
	}
	if !g.Dispose() {
		t.Fatalf("first Dispose should win")
	}
	if g.Dispose() {
		t.Fatalf("second Dispose should lose")
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("teardown ran %d times, want 1", got)
	}
	if !g.Disposed() {
		t.Fatalf("guard not marked disposed")
	}
}

func TestGuardConcurrentDispose(t *testing.T) {
	var runs atomic.Int64
	var wins atomic.Int64
	g := NewGuard(func() { runs.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Dispose() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := runs.Load(); got != 1 {
		t.Fatalf("teardown ran %d times, want 1", got)
	}
	if got := wins.Load(); got != 1 {
		t.Fatalf("%d callers won Dispose, want 1", got)
	}
}

func TestGuardNilTeardown(t *testing.T) {
	g := NewGuard(nil)
	if !g.Dispose() {
		t.Fatalf("first Dispose should win even with nil teardown")
	}
	if !g.Disposed() {
		t.Fatalf("guard not marked disposed")
	}
}

func TestGuardPanickingTeardown(t *testing.T) {
	g := NewGuard(func() { panic("boom") })
	if !g.Dispose() {
		t.Fatalf("first Dispose should win")
	}
	if !g.Disposed() {
		t.Fatalf("panicking teardown must still mark guard disposed")
	}
	if g.Dispose() {
		t.Fatalf("second Dispose should lose after panic")
	}
}

func TestGuardZeroValue(t *testing.T) {
	var g Guard
	if !g.Dispose() {
		t.Fatalf("zero-value guard: first Dispose should win")
	}
	if !g.Disposed() {
		t.Fatalf("zero-value guard not marked disposed")
	}
}
