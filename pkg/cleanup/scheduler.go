package cleanup

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sweep/pkg/lifecycle"
	logx "sweep/pkg/logx"
)

const (
	// DefaultDelay is the coalescing delay used when Config.Delay is zero.
	DefaultDelay = 50 * time.Millisecond
	// DefaultMargin is the past-due safety margin used when Config.Margin
	// is zero. The exact value is a heuristic knob, not a correctness one.
	DefaultMargin = 10 * time.Millisecond
)

var (
	ErrNegativeDelay  = errors.New("cleanup: delay must be >= 0")
	ErrNegativeMargin = errors.New("cleanup: margin must be >= 0")
	ErrNilFunc        = errors.New("cleanup: cleanup func is required")
)

// Func is the cleanup hook. It may run on the caller's goroutine
// (Immediate), on a dispatched goroutine, or on the timer goroutine.
//
// The context is canceled when the scheduler is closed; a hook that is
// already running may use it to cut work short, but it is never forcibly
// interrupted.
type Func func(ctx context.Context) error

// Config configures a Scheduler.
//
// Zero values fall back to DefaultDelay / DefaultMargin.
type Config struct {
	// Delay is the coalescing delay between a Deferred request and the
	// timer fire. Re-arming replaces the pending fire.
	Delay time.Duration
	// Margin is added to Delay when deciding whether the scheduler is
	// past due.
	Margin time.Duration
}

// Scheduler coalesces cleanup requests into a bounded number of hook
// executions. See the package documentation for the mode semantics.
type Scheduler struct {
	log logx.Logger
	fn  Func

	guard  *lifecycle.Guard
	ctx    context.Context
	cancel context.CancelFunc

	// runMu serializes hook executions so a run never overlaps itself.
	// It is never held together with mu.
	runMu sync.Mutex

	// reports throttles failure logging so a hook that fails on every
	// cycle cannot flood the log.
	reports *rate.Limiter

	mu       sync.Mutex
	delay    time.Duration
	margin   time.Duration
	timer    *time.Timer // single slot; Reset replaces, never stacks
	armed    bool        // true once a deferral has been armed, cleared by Clear
	inFlight int         // runs between entry and completion bookkeeping
	lastDone time.Time   // last completed run; zero means "nothing due"
	runs     uint64
	failures uint64
}

// New returns a scheduler that will invoke fn to perform cleanup.
// Negative durations and a nil fn are rejected.
func New(cfg Config, log logx.Logger, fn Func) (*Scheduler, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if cfg.Delay < 0 {
		return nil, fmt.Errorf("%w (got %s)", ErrNegativeDelay, cfg.Delay)
	}
	if cfg.Margin < 0 {
		return nil, fmt.Errorf("%w (got %s)", ErrNegativeMargin, cfg.Margin)
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	delay := cfg.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	margin := cfg.Margin
	if margin == 0 {
		margin = DefaultMargin
	}

	s := &Scheduler{
		log:     log,
		fn:      fn,
		delay:   delay,
		margin:  margin,
		reports: rate.NewLimiter(rate.Every(time.Second), 3),
		// Past-due is measured from construction until the first run
		// completes.
		lastDone: time.Now(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.guard = lifecycle.NewGuard(s.teardown)
	return s, nil
}

// SetDelay changes the coalescing delay for future arm operations.
// It does not reschedule a timer that is already pending.
func (s *Scheduler) SetDelay(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w (got %s)", ErrNegativeDelay, d)
	}
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
	return nil
}

// Delay returns the current coalescing delay.
func (s *Scheduler) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// IsPastDue reports whether the time since the last completed run exceeds
// delay+margin. It is false while a run is in flight and after Clear.
func (s *Scheduler) IsPastDue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pastDueLocked(time.Now())
}

func (s *Scheduler) pastDueLocked(now time.Time) bool {
	if s.inFlight > 0 || s.lastDone.IsZero() {
		return false
	}
	return now.Sub(s.lastDone) > s.delay+s.margin
}

// Request is the single entry point for cleanup requests.
// It is a no-op after Close.
func (s *Scheduler) Request(mode Mode) {
	if s.guard.Disposed() {
		return
	}
	switch mode {
	case Immediate:
		s.run()

	case ImmediateIfPastDue:
		s.mu.Lock()
		switch {
		case !s.armed:
			// Nothing has ever been due; start a normal deferral.
			s.armLocked()
			s.mu.Unlock()
		case s.pastDueLocked(time.Now()):
			s.mu.Unlock()
			s.run()
		default:
			// Not due yet; leave any pending timer alone.
			s.mu.Unlock()
		}

	case ImmediateDeferred:
		s.dispatch()

	case ImmediateDeferredIfPastDue:
		s.mu.Lock()
		switch {
		case !s.armed:
			s.armLocked()
			s.mu.Unlock()
		case s.pastDueLocked(time.Now()):
			s.mu.Unlock()
			s.dispatch()
		default:
			s.mu.Unlock()
		}

	default: // Deferred
		s.mu.Lock()
		s.armLocked()
		s.mu.Unlock()
	}
}

// Clear cancels any pending timer and resets the scheduler to "nothing
// scheduled, nothing due".
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.armed = false
	s.lastDone = time.Time{}
}

// Close disposes the scheduler: the pending timer is canceled and no new
// hook invocations start. A hook already running is allowed to finish.
// Close is idempotent and never blocks on the hook.
func (s *Scheduler) Close() error {
	s.guard.Dispose()
	return nil
}

// teardown runs exactly once, under the lifecycle guard.
func (s *Scheduler) teardown() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
	s.mu.Unlock()
	s.cancel()
}

// armLocked replaces the pending timer fire (if any) with a new one.
// Caller holds s.mu.
func (s *Scheduler) armLocked() {
	if s.guard.Disposed() {
		return
	}
	if s.timer != nil {
		s.timer.Reset(s.delay)
	} else {
		s.timer = time.AfterFunc(s.delay, s.onTimer)
	}
	s.armed = true
}

func (s *Scheduler) onTimer() {
	s.run()
}

// dispatch arms the backstop timer and starts one asynchronous run, unless
// a run is already in flight.
func (s *Scheduler) dispatch() {
	s.mu.Lock()
	if s.guard.Disposed() {
		s.mu.Unlock()
		return
	}
	s.armLocked()
	if s.inFlight > 0 {
		// Another run is executing; the backstop timer covers us.
		s.mu.Unlock()
		return
	}
	s.inFlight++
	s.mu.Unlock()
	go s.finish()
}

// run is the execution path shared by the timer fire and Immediate.
func (s *Scheduler) run() {
	s.mu.Lock()
	if s.guard.Disposed() {
		s.mu.Unlock()
		return
	}
	s.inFlight++
	s.mu.Unlock()
	s.finish()
}

// finish invokes the hook and records completion. The caller must already
// have counted this run in inFlight. Bookkeeping happens regardless of the
// hook outcome so a failing hook cannot wedge the scheduler.
func (s *Scheduler) finish() {
	err := s.invoke()
	if err != nil {
		if s.reports.Allow() {
			s.log.Warn("cleanup failed", logx.Err(err))
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.inFlight--
	s.lastDone = now
	s.runs++
	if err != nil {
		s.failures++
	}
	s.mu.Unlock()
}

// invoke runs the hook serialized and panic-safe, outside the state lock.
func (s *Scheduler) invoke() (err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup panic: %v\n%s", r, debug.Stack())
		}
	}()
	return s.fn(s.ctx)
}
