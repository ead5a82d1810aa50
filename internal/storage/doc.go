// Package storage provides sweepd's TTL key/value store.
//
// Entries carry an expiry deadline and accumulate garbage as they expire;
// Sweep removes everything past its deadline. SweptStore couples a Store
// with a cleanup.Scheduler so that bursts of writes coalesce into a bounded
// number of sweeps.
package storage
