// Package cleanup provides a debounced, thread-safe deferred-cleanup
// scheduler for objects that must run an expensive or disruptive cleanup
// routine but want to avoid running it too often.
//
// # Overview
//
// A Scheduler owns a single coalescing timer, an armed flag and an in-flight
// counter. Callers report activity through Request(mode) whenever cleanup
// might be worthwhile; the scheduler decides synchronously whether to run the
// hook now, dispatch it to a background goroutine, or just (re)arm the delay
// timer so that bursts of requests collapse into one execution.
//
// # Modes
//
//   - Deferred (default): arm or re-arm the delay timer; nothing runs now.
//   - Immediate: run the hook synchronously on the caller's goroutine.
//   - ImmediateIfPastDue: behave as Deferred if nothing was ever armed,
//     as Immediate if the last completed run is past due, otherwise no-op.
//   - ImmediateDeferred: arm the timer as a backstop and dispatch one
//     asynchronous run, unless a run is already in flight.
//   - ImmediateDeferredIfPastDue: as ImmediateIfPastDue, but escalating to
//     ImmediateDeferred instead of Immediate.
//
// # Concurrency
//
// Request, SetDelay, Clear and Close may be called concurrently from any
// goroutine; the timer fires on its own goroutine. At most one timer is live
// per scheduler, at most one asynchronous run is in flight, and hook
// executions never overlap each other. The hook runs outside the scheduler's
// state lock so scheduling operations are never blocked by cleanup work.
//
// # Failures
//
// Errors and panics raised by the hook are contained at the scheduler
// boundary: they are reported to the diagnostic log (rate limited) and
// swallowed, and completion bookkeeping proceeds regardless, so a
// persistently failing hook just gets retried on the next coalescing cycle.
package cleanup
