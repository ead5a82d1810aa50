package config

// Config is sweepd's root configuration.
//
// Files may be JSON or YAML (by extension); YAML is coerced to JSON before
// strict decoding, so unknown fields are rejected in both formats.
//
// All durations are Go duration strings (e.g. "50ms", "10s", "1m").
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Store   StoreConfig   `json:"store"`
	Janitor JanitorConfig `json:"janitor,omitempty"`
	Debug   DebugConfig   `json:"debug,omitempty"`
}

// LoggingConfig mirrors logx.Config.
//
// Console is a pointer so we can distinguish "omitted" (default true) from
// an explicit false.
type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console *bool      `json:"console,omitempty"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StoreConfig controls the TTL store and its sweep scheduler.
//
// Driver values:
//   - "file": dependency-free JSON file backend
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", the store is disabled.
//
// Defaults (when fields are omitted/zero):
//   - entry_ttl: "24h"
//   - sweep_delay: cleanup.DefaultDelay
//   - sweep_margin: cleanup.DefaultMargin
type StoreConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only; "0s" means default
	EntryTTL    string `json:"entry_ttl,omitempty"`
	SweepDelay  string `json:"sweep_delay,omitempty"`
	SweepMargin string `json:"sweep_margin,omitempty"`

	// Heartbeat is the interval between the daemon's own TTL heartbeat
	// writes. "0s" disables them. Default: "10s".
	Heartbeat string `json:"heartbeat,omitempty"`
}

// JanitorConfig controls scheduled maintenance.
//
// Specs accept robfig/cron syntax, including "@every 1m" style descriptors.
type JanitorConfig struct {
	Enabled  bool   `json:"enabled"`
	Timezone string `json:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Jakarta"

	// SweepSpec triggers a past-due escalation check. Default: "@every 1m".
	SweepSpec string `json:"sweep_spec,omitempty"`
	// DeepSpec triggers an unconditional deep sweep. Default: "@daily".
	DeepSpec string `json:"deep_spec,omitempty"`
}

// DebugConfig controls the optional debug HTTP server (/healthz, /statusz,
// pprof). Binding to a non-loopback addr requires a token.
type DebugConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:6060"
	Token   string `json:"token,omitempty"`
}

// ConsoleEnabled resolves the Console pointer (default true).
func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}
