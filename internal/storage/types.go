package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (snapshot + journal)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry is one keyed value with an expiry deadline.
type Entry struct {
	Key   string
	Value string
	Until time.Time
}

// Expired reports whether the entry's deadline has passed at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.Until.IsZero() && e.Until.Before(now)
}
