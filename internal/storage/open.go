package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "sweep/pkg/logx"
)

// Store is the minimal persistence API used by sweepd.
type Store interface {
	Put(ctx context.Context, key, value string, until time.Time) error
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Sweep removes all entries whose deadline has passed and reports how
	// many were removed. It is the expensive operation the cleanup
	// scheduler exists to coalesce.
	Sweep(ctx context.Context) (removed int, err error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
