package janitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sweep/pkg/cleanup"
	logx "sweep/pkg/logx"
)

type fakeTarget struct {
	requests atomic.Int64
	lastMode atomic.Int64
}

func (f *fakeTarget) RequestSweep(mode cleanup.Mode) {
	f.requests.Add(1)
	f.lastMode.Store(int64(mode))
}

func TestJanitorNudgesTarget(t *testing.T) {
	ctx := context.Background()
	target := &fakeTarget{}
	s := New(Config{Enabled: true, SweepSpec: "@every 100ms", DeepSpec: "@daily"}, logx.Nop(), target)

	s.Start(ctx)
	defer s.Stop(ctx)

	time.Sleep(350 * time.Millisecond)
	if got := target.requests.Load(); got < 2 {
		t.Fatalf("target nudged %d times, want >= 2", got)
	}
	if got := cleanup.Mode(target.lastMode.Load()); got != cleanup.ImmediateDeferredIfPastDue {
		t.Fatalf("nudge mode = %v, want ImmediateDeferredIfPastDue", got)
	}

	snap := s.Snapshot()
	if !snap.Running || snap.Checks < 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestJanitorStopHaltsNudges(t *testing.T) {
	ctx := context.Background()
	target := &fakeTarget{}
	s := New(Config{Enabled: true, SweepSpec: "@every 50ms"}, logx.Nop(), target)

	s.Start(ctx)
	time.Sleep(150 * time.Millisecond)
	s.Stop(ctx)

	before := target.requests.Load()
	time.Sleep(200 * time.Millisecond)
	if after := target.requests.Load(); after != before {
		t.Fatalf("target nudged after Stop (%d -> %d)", before, after)
	}
	if snap := s.Snapshot(); snap.Running {
		t.Fatalf("snapshot reports running after Stop")
	}
}

func TestJanitorDisabledDoesNotStart(t *testing.T) {
	ctx := context.Background()
	target := &fakeTarget{}
	s := New(Config{Enabled: false, SweepSpec: "@every 50ms"}, logx.Nop(), target)

	s.Start(ctx)
	defer s.Stop(ctx)

	time.Sleep(150 * time.Millisecond)
	if got := target.requests.Load(); got != 0 {
		t.Fatalf("disabled janitor nudged target %d times", got)
	}
}

// snapshottingTarget blocks its first sweep request until released, then
// reads the service snapshot from inside the job.
type snapshottingTarget struct {
	svc     *Service
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *snapshottingTarget) RequestSweep(cleanup.Mode) {
	b.once.Do(func() {
		b.started <- struct{}{}
		<-b.release
		_ = b.svc.Snapshot()
	})
}

func TestJanitorStopWaitsForJobWithoutDeadlock(t *testing.T) {
	ctx := context.Background()
	target := &snapshottingTarget{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(Config{Enabled: true, SweepSpec: "@every 50ms"}, logx.Nop(), target)
	target.svc = s

	s.Start(ctx)
	<-target.started // a job is mid-flight

	done := make(chan struct{})
	go func() {
		s.Stop(ctx)
		close(done)
	}()

	// Let Stop reach its wait on the running job, then release the job.
	// The job's Snapshot call must be able to take the service mutex.
	time.Sleep(100 * time.Millisecond)
	close(target.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return after the running job finished")
	}
	if snap := s.Snapshot(); snap.Running {
		t.Fatalf("snapshot reports running after Stop")
	}
}

func TestJanitorApplyDisableStops(t *testing.T) {
	ctx := context.Background()
	target := &fakeTarget{}
	s := New(Config{Enabled: true, SweepSpec: "@every 50ms"}, logx.Nop(), target)

	s.Start(ctx)
	s.Apply(Config{Enabled: false})

	before := target.requests.Load()
	time.Sleep(200 * time.Millisecond)
	if after := target.requests.Load(); after != before {
		t.Fatalf("target nudged after disable (%d -> %d)", before, after)
	}
}
