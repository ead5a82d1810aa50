// Package app wires sweepd's services together: config manager, logging,
// the swept TTL store, the janitor, and the debug HTTP server. Config
// changes picked up by the watcher are applied to the running services
// without a restart.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"sweep/internal/config"
	"sweep/internal/services/debughttp"
	"sweep/internal/services/janitor"
	"sweep/internal/storage"
	"sweep/pkg/cleanup"
	logx "sweep/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store *storage.SweptStore
	jan   *janitor.Service
	dbg   *debughttp.Service

	started time.Time

	heartbeat time.Duration
	entryTTL  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	updates chan *config.Config
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg.Logging))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))
	cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		_, _, _, _, err := mapStoreConfig(cfg.Store)
		return err
	})

	storeCfg, sweepCfg, ttl, hb, err := mapStoreConfig(cfg.Store)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	a := &App{
		cfgPath:   cfgPath,
		cfgm:      cfgm,
		logs:      logSvc,
		log:       log,
		heartbeat: hb,
		entryTTL:  ttl,
	}

	st, err := storage.Open(storeCfg, logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	if st != nil {
		swept, err := storage.NewSwept(st, sweepCfg, logSvc.Logger().With(logx.String("comp", "sweep")))
		if err != nil {
			_ = st.Close()
			_ = logSvc.Close()
			return nil, err
		}
		a.store = swept
		log.Info("store enabled",
			logx.String("driver", storeCfg.Driver),
			logx.Duration("sweep_delay", sweepCfg.Delay),
			logx.Duration("entry_ttl", ttl),
		)
	}

	var target janitor.Target
	if a.store != nil {
		target = a.store
	}
	a.jan = janitor.New(mapJanitorConfig(cfg.Janitor), logSvc.Logger().With(logx.String("comp", "janitor")), target)
	a.dbg = debughttp.New(mapDebugConfig(cfg.Debug), logSvc.Logger().With(logx.String("comp", "debug")), a.statusSnapshot)
	a.started = time.Now()

	return a, nil
}

func (a *App) statusSnapshot() any {
	st := struct {
		Uptime  string `json:"uptime"`
		Store   any    `json:"store,omitempty"`
		Janitor any    `json:"janitor"`
	}{
		Uptime:  time.Since(a.started).Round(time.Second).String(),
		Janitor: a.jan.Snapshot(),
	}
	if a.store != nil {
		n, _ := a.store.Len(context.Background())
		st.Store = struct {
			Len   int `json:"len"`
			Sweep any `json:"sweep"`
		}{
			Len:   n,
			Sweep: a.store.SweepSnapshot(),
		}
	}
	return st
}

// Store returns the swept store, or nil when storage is disabled.
func (a *App) Store() *storage.SweptStore { return a.store }

func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.updates = a.cfgm.Subscribe(4)
	a.mu.Unlock()

	a.jan.Start(runCtx)
	a.dbg.Start(runCtx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.updateLoop(runCtx)
	}()

	if a.store != nil && a.heartbeat > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.heartbeatLoop(runCtx)
		}()
	}

	a.log.Info("sweepd started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	updates := a.updates
	a.updates = nil
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	a.dbg.Stop(ctx)
	a.jan.Stop(ctx)
	a.cfgm.Unsubscribe(updates)
	a.wg.Wait()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close failed", logx.Err(err))
		}
	}
	a.log.Info("sweepd stopped")
	return a.logs.Close()
}

func (a *App) updateLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.updates:
			if !ok {
				return
			}
			if cfg == nil {
				continue
			}
			a.applyConfig(cfg)
		}
	}
}

// applyConfig applies a hot-reloaded config to the running services.
// Store driver/path changes require a restart and are ignored here.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(mapLoggingConfig(cfg.Logging))
	a.jan.Apply(mapJanitorConfig(cfg.Janitor))
	a.dbg.Apply(context.Background(), mapDebugConfig(cfg.Debug))

	_, sweepCfg, ttl, hb, err := mapStoreConfig(cfg.Store)
	if err != nil {
		// The validator should have rejected this before publish.
		a.log.Warn("reloaded store config invalid", logx.Err(err))
		return
	}
	a.mu.Lock()
	a.entryTTL = ttl
	a.heartbeat = hb
	a.mu.Unlock()
	if a.store != nil {
		if err := a.store.SetSweepDelay(sweepCfg.Delay); err != nil {
			a.log.Warn("sweep delay rejected", logx.Err(err))
		}
	}
	a.log.Info("config applied")
}

// heartbeatLoop writes short-lived entries so an otherwise idle daemon
// still produces garbage for the sweeper to collect.
func (a *App) heartbeatLoop(ctx context.Context) {
	a.mu.Lock()
	interval := a.heartbeat
	a.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	host, _ := os.Hostname()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.mu.Lock()
			ttl := a.entryTTL
			if hb := a.heartbeat; hb > 0 && hb != interval {
				interval = hb
				ticker.Reset(interval)
			}
			a.mu.Unlock()

			key := fmt.Sprintf("hb:%d", now.UnixNano())
			if err := a.store.Put(ctx, key, host, now.Add(ttl)); err != nil {
				a.log.Warn("heartbeat write failed", logx.Err(err))
			}
		}
	}
}

func mapLoggingConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}

func mapJanitorConfig(jc config.JanitorConfig) janitor.Config {
	return janitor.Config{
		Enabled:   jc.Enabled,
		Timezone:  jc.Timezone,
		SweepSpec: jc.SweepSpec,
		DeepSpec:  jc.DeepSpec,
	}
}

func mapDebugConfig(dc config.DebugConfig) debughttp.Config {
	return debughttp.Config{
		Enabled: dc.Enabled,
		Addr:    dc.Addr,
		Token:   dc.Token,
	}
}

func mapStoreConfig(sc config.StoreConfig) (storage.Config, cleanup.Config, time.Duration, time.Duration, error) {
	busy, err := config.ParseDurationField("store.busy_timeout", sc.BusyTimeout)
	if err != nil {
		return storage.Config{}, cleanup.Config{}, 0, 0, err
	}
	delay, err := config.ParseDurationOrDefault("store.sweep_delay", sc.SweepDelay, cleanup.DefaultDelay)
	if err != nil {
		return storage.Config{}, cleanup.Config{}, 0, 0, err
	}
	margin, err := config.ParseDurationOrDefault("store.sweep_margin", sc.SweepMargin, cleanup.DefaultMargin)
	if err != nil {
		return storage.Config{}, cleanup.Config{}, 0, 0, err
	}
	ttl, err := config.ParseDurationOrDefault("store.entry_ttl", sc.EntryTTL, 24*time.Hour)
	if err != nil {
		return storage.Config{}, cleanup.Config{}, 0, 0, err
	}
	// "0s" disables heartbeats; only an omitted field gets the default.
	hb, err := config.ParseDurationField("store.heartbeat", sc.Heartbeat)
	if err != nil {
		return storage.Config{}, cleanup.Config{}, 0, 0, err
	}
	if strings.TrimSpace(sc.Heartbeat) == "" {
		hb = 10 * time.Second
	}

	return storage.Config{
			Driver:      sc.Driver,
			Path:        sc.Path,
			BusyTimeout: busy,
		}, cleanup.Config{
			Delay:  delay,
			Margin: margin,
		}, ttl, hb, nil
}
