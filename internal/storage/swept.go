package storage

import (
	"context"
	"time"

	"sweep/pkg/cleanup"
	logx "sweep/pkg/logx"
)

// SweptStore couples a Store with a deferred-cleanup scheduler.
//
// Every successful write requests a coalesced sweep, so a burst of writes
// collapses into a single Sweep once the configured delay has passed.
// Collaborators that want sweeps sooner (e.g. scheduled maintenance) can
// escalate through RequestSweep.
type SweptStore struct {
	Store

	log   logx.Logger
	sched *cleanup.Scheduler
}

// NewSwept wraps st. The scheduler's hook is st.Sweep.
func NewSwept(st Store, cfg cleanup.Config, log logx.Logger) (*SweptStore, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &SweptStore{Store: st, log: log}
	sched, err := cleanup.New(cfg, log, s.sweep)
	if err != nil {
		return nil, err
	}
	s.sched = sched
	return s, nil
}

func (s *SweptStore) sweep(ctx context.Context) error {
	start := time.Now()
	removed, err := s.Store.Sweep(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.log.Debug("store swept",
			logx.Int("removed", removed),
			logx.Duration("took", time.Since(start)),
		)
	}
	return nil
}

// Put writes through to the underlying store and schedules a deferred sweep.
func (s *SweptStore) Put(ctx context.Context, key, value string, until time.Time) error {
	if err := s.Store.Put(ctx, key, value, until); err != nil {
		return err
	}
	s.sched.Request(cleanup.Deferred)
	return nil
}

// RequestSweep forwards a mode to the sweep scheduler.
func (s *SweptStore) RequestSweep(mode cleanup.Mode) { s.sched.Request(mode) }

// SetSweepDelay changes the coalescing delay for future sweeps.
func (s *SweptStore) SetSweepDelay(d time.Duration) error { return s.sched.SetDelay(d) }

// SweepSnapshot exposes the scheduler state for observability.
func (s *SweptStore) SweepSnapshot() cleanup.Snapshot { return s.sched.Snapshot() }

// Close shuts down the scheduler first so no sweep starts against a closing
// store, then closes the store itself.
func (s *SweptStore) Close() error {
	_ = s.sched.Close()
	return s.Store.Close()
}
