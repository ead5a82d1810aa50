package janitor

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"sweep/pkg/cleanup"
	logx "sweep/pkg/logx"
)

const (
	defaultSweepSpec = "@every 1m"
	defaultDeepSpec  = "@daily"
)

type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"

	SweepSpec string // past-due escalation check
	DeepSpec  string // unconditional deep sweep
}

// Target is the maintained object; in sweepd it is a storage.SweptStore.
type Target interface {
	RequestSweep(mode cleanup.Mode)
}

type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	target Target

	parser cron.Parser
	c      *cron.Cron
	loc    *time.Location

	sweepID cron.EntryID
	deepID  cron.EntryID

	// Counted atomically: jobs must never take s.mu, because Stop waits
	// for running jobs after detaching the cron.
	checks atomic.Uint64
	deeps  atomic.Uint64
}

func New(cfg Config, log logx.Logger, target Target) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		log:    log,
		target: target,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply updates the config; if the service is running and the schedule or
// timezone changed, the cron is restarted with the new definitions.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	running := s.c != nil

	changed := old.Timezone != cfg.Timezone || old.SweepSpec != cfg.SweepSpec || old.DeepSpec != cfg.DeepSpec
	var detached *cron.Cron
	if running && (!cfg.Enabled || changed) {
		detached = s.detachLocked()
	}
	s.mu.Unlock()

	s.waitStop(detached)

	if detached != nil && cfg.Enabled {
		s.mu.Lock()
		if s.c == nil && s.cfg.Enabled {
			s.startLocked()
		}
		s.mu.Unlock()
	}
}

func (s *Service) Start(ctx context.Context) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || !s.cfg.Enabled {
		return
	}
	s.startLocked()
}

// Stop detaches the cron under the lock, then waits for running jobs with
// the lock released so a firing job is free to finish.
func (s *Service) Stop(ctx context.Context) {
	_ = ctx
	s.mu.Lock()
	detached := s.detachLocked()
	s.mu.Unlock()
	s.waitStop(detached)
}

func (s *Service) startLocked() {
	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	sweepSpec := s.cfg.SweepSpec
	if strings.TrimSpace(sweepSpec) == "" {
		sweepSpec = defaultSweepSpec
	}
	deepSpec := s.cfg.DeepSpec
	if strings.TrimSpace(deepSpec) == "" {
		deepSpec = defaultDeepSpec
	}

	id, err := s.c.AddFunc(sweepSpec, s.runSweepCheck)
	if err != nil {
		s.log.Warn("janitor sweep spec invalid", logx.String("spec", sweepSpec), logx.Err(err))
	} else {
		s.sweepID = id
	}
	id, err = s.c.AddFunc(deepSpec, s.runDeepSweep)
	if err != nil {
		s.log.Warn("janitor deep spec invalid", logx.String("spec", deepSpec), logx.Err(err))
	} else {
		s.deepID = id
	}

	s.c.Start()
	s.log.Info("janitor started",
		logx.String("tz", loc.String()),
		logx.String("sweep_spec", sweepSpec),
		logx.String("deep_spec", deepSpec),
	)
}

// detachLocked takes ownership of the cron so the caller can wait on it
// outside the lock. Caller holds s.mu.
func (s *Service) detachLocked() *cron.Cron {
	c := s.c
	s.c = nil
	s.sweepID = 0
	s.deepID = 0
	return c
}

func (s *Service) waitStop(c *cron.Cron) {
	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.log.Info("janitor stopped")
}

func (s *Service) runSweepCheck() {
	s.checks.Add(1)
	if s.target == nil {
		return
	}
	// Escalate asynchronously, and only when the store is actually overdue.
	s.target.RequestSweep(cleanup.ImmediateDeferredIfPastDue)
}

func (s *Service) runDeepSweep() {
	s.deeps.Add(1)
	if s.target == nil {
		return
	}
	s.log.Debug("janitor deep sweep")
	s.target.RequestSweep(cleanup.Immediate)
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
