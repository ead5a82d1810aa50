package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sweep/internal/config"
	"sweep/pkg/cleanup"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestAppStartStop(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
logging:
  level: error
  console: false
store:
  driver: file
  path: `+filepath.Join(dir, "store.json")+`
  heartbeat: 0s
janitor:
  enabled: false
`)

	a, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Store() == nil {
		t.Fatalf("store should be enabled")
	}

	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestAppDisabledStore(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
logging:
  level: error
  console: false
store:
  driver: none
  path: ""
`)

	a, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Store() != nil {
		t.Fatalf("store should be disabled")
	}

	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestAppRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
store:
  driver: file
  path: ./x
  sweep_delay: "-5s"
`)
	if _, err := New(path); err == nil {
		t.Fatalf("negative sweep_delay accepted")
	}
}

func TestMapStoreConfigDefaults(t *testing.T) {
	_, sweepCfg, ttl, hb, err := mapStoreConfig(config.StoreConfig{Driver: "file", Path: "./x"})
	if err != nil {
		t.Fatalf("mapStoreConfig: %v", err)
	}
	if sweepCfg.Delay != cleanup.DefaultDelay || sweepCfg.Margin != cleanup.DefaultMargin {
		t.Fatalf("unexpected sweep config: %+v", sweepCfg)
	}
	if ttl != 24*time.Hour {
		t.Fatalf("entry TTL default = %s, want 24h", ttl)
	}
	if hb != 10*time.Second {
		t.Fatalf("heartbeat default = %s, want 10s", hb)
	}

	_, _, _, hb, err = mapStoreConfig(config.StoreConfig{Driver: "file", Path: "./x", Heartbeat: "0s"})
	if err != nil {
		t.Fatalf("mapStoreConfig: %v", err)
	}
	if hb != 0 {
		t.Fatalf("explicit 0s heartbeat = %s, want 0", hb)
	}
}
