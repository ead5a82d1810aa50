// Package lifecycle provides small dispose-once primitives.
//
// A Guard wraps a teardown hook and guarantees it runs exactly once no
// matter how many goroutines race to dispose it. An Action is the minimal
// single-callback variant: it owns one callback and invokes it at most once
// at disposal time.
//
// Both types treat use-after-dispose as defined idle behavior, not an error.
package lifecycle
