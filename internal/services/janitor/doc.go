// Package janitor provides scheduled maintenance for a swept store.
//
// The janitor does not sweep anything itself: it periodically nudges the
// store's cleanup scheduler. The regular job escalates only when the last
// sweep is past due, so a store that is already sweeping on its own (because
// writes keep arming the coalescing timer) is left alone. The deep job
// forces an unconditional sweep on a coarse schedule (default daily).
//
// The service can be started/stopped at runtime (e.g. via config hot
// reload); Apply restarts the cron when the timezone or specs change.
package janitor
