package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"sweep/pkg/cleanup"
	logx "sweep/pkg/logx"
)

// countingStore wraps a Store and counts Sweep calls.
type countingStore struct {
	Store
	sweeps atomic.Int64
}

func (c *countingStore) Sweep(ctx context.Context) (int, error) {
	c.sweeps.Add(1)
	return c.Store.Sweep(ctx)
}

func newSweptStore(t *testing.T, delay time.Duration) (*SweptStore, *countingStore) {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "store.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cs := &countingStore{Store: st}
	sw, err := NewSwept(cs, cleanup.Config{Delay: delay}, logx.Nop())
	if err != nil {
		t.Fatalf("NewSwept: %v", err)
	}
	t.Cleanup(func() { _ = sw.Close() })
	return sw, cs
}

func TestSweptStoreCoalescesWrites(t *testing.T) {
	ctx := context.Background()
	sw, cs := newSweptStore(t, 150*time.Millisecond)

	now := time.Now()
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("k%d", i)
		until := now.Add(-time.Hour) // already expired
		if i%2 == 0 {
			until = now.Add(time.Hour)
		}
		if err := sw.Put(ctx, key, "v", until); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	if got := cs.sweeps.Load(); got != 0 {
		t.Fatalf("sweep ran %d times during the write burst", got)
	}

	time.Sleep(400 * time.Millisecond)
	if got := cs.sweeps.Load(); got != 1 {
		t.Fatalf("sweep ran %d times, want 1", got)
	}
	n, err := sw.Len(ctx)
	if err != nil || n != 5 {
		t.Fatalf("Len after sweep: (%d, %v), want (5, nil)", n, err)
	}
}

func TestSweptStoreImmediateEscalation(t *testing.T) {
	ctx := context.Background()
	sw, cs := newSweptStore(t, time.Hour)

	if err := sw.Put(ctx, "dead", "v", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	sw.RequestSweep(cleanup.Immediate)

	if got := cs.sweeps.Load(); got != 1 {
		t.Fatalf("immediate sweep ran %d times, want 1", got)
	}
	if _, ok, _ := sw.Get(ctx, "dead"); ok {
		t.Fatalf("expired entry survived immediate sweep")
	}
}

func TestSweptStoreCloseStopsSweeps(t *testing.T) {
	ctx := context.Background()
	sw, cs := newSweptStore(t, 60*time.Millisecond)

	if err := sw.Put(ctx, "k", "v", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := sw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if got := cs.sweeps.Load(); got != 0 {
		t.Fatalf("sweep ran %d times after Close", got)
	}
	if snap := sw.SweepSnapshot(); !snap.Disposed {
		t.Fatalf("scheduler not disposed after Close")
	}
}
