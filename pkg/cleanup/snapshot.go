package cleanup

import "time"

// Snapshot is a point-in-time view of a scheduler, intended for
// observability and tests, not for synchronization.
type Snapshot struct {
	Armed       bool          `json:"armed"`
	InFlight    bool          `json:"in_flight"`
	Disposed    bool          `json:"disposed"`
	Delay       time.Duration `json:"delay"`
	Margin      time.Duration `json:"margin"`
	LastCleanup time.Time     `json:"last_cleanup"`
	Runs        uint64        `json:"runs"`
	Failures    uint64        `json:"failures"`
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Armed:       s.armed,
		InFlight:    s.inFlight > 0,
		Disposed:    s.guard.Disposed(),
		Delay:       s.delay,
		Margin:      s.margin,
		LastCleanup: s.lastDone,
		Runs:        s.runs,
		Failures:    s.failures,
	}
}
