package janitor

import "time"

type Snapshot struct {
	Enabled   bool      `json:"enabled"`
	Running   bool      `json:"running"`
	Timezone  string    `json:"timezone"`
	NextNudge time.Time `json:"next_nudge"`
	NextDeep  time.Time `json:"next_deep"`
	Checks    uint64    `json:"checks"`
	Deeps     uint64    `json:"deeps"`
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Enabled: s.cfg.Enabled,
		Running: s.c != nil,
		Checks:  s.checks.Load(),
		Deeps:   s.deeps.Load(),
	}
	if s.loc != nil {
		snap.Timezone = s.loc.String()
	}
	if s.c != nil {
		if s.sweepID != 0 {
			snap.NextNudge = s.c.Entry(s.sweepID).Next
		}
		if s.deepID != 0 {
			snap.NextDeep = s.c.Entry(s.deepID).Next
		}
	}
	return snap
}
