package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pkt.systems/flowdeck/core"
	"pkt.systems/flowdeck/internal/api"
	"pkt.systems/flowdeck/internal/appconfig"
	"pkt.systems/flowdeck/internal/eventbus"
	"pkt.systems/flowdeck/internal/metrics"
	"pkt.systems/flowdeck/internal/persist"
	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

// app holds the wired collaborators of one CLI invocation.
type app struct {
	cfg     appconfig.Config
	client  *api.Client
	store   *persist.TabStore
	bus     *eventbus.Bus
	metrics *metrics.Metrics
	session *core.Session
	stop    func()
	log     pslog.Logger
}

func openApp(ctx context.Context, configPath string) (*app, error) {
	logger := pslog.Ctx(ctx)
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return nil, err
	}
	backend, err := openBackend(ctx, cfg.State, logger)
	if err != nil {
		return nil, err
	}
	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(time.Duration(cfg.API.TimeoutSeconds)*time.Second),
		api.WithTracing(cfg.API.Tracing),
		api.WithLogger(logger),
	)
	store := persist.NewTabStore(backend, logger)
	bus := eventbus.New(logger)
	m := metrics.New()
	session, err := core.NewSession(cfg.SessionLimits(), core.SessionDeps{
		Repository:    client,
		Store:         store,
		EventSink:     bus,
		Metrics:       m,
		StreamMetrics: m,
		Logger:        logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		client:  client,
		store:   store,
		bus:     bus,
		metrics: m,
		session: session,
		log:     logger,
	}
	a.stop = a.watchTabEvents()
	logger.Debug("app ready", "api", client.BaseURL(), "state_backend", cfg.State.Backend)
	return a, nil
}

// openRestored opens the app and restores the persisted tabs. A failed
// re-fetch of the active workflow is logged; the tab list stays usable.
func openRestored(ctx context.Context, configPath string) (*app, error) {
	a, err := openApp(ctx, configPath)
	if err != nil {
		return nil, err
	}
	if err := a.session.Restore(ctx); err != nil {
		a.log.Warn("active workflow reload failed", "err", err)
	}
	return a, nil
}

func (a *app) Close() error {
	if a == nil {
		return nil
	}
	if a.stop != nil {
		a.stop()
	}
	return a.store.Close()
}

func (a *app) watchTabEvents() func() {
	ch, cancel := a.bus.Subscribe(eventbus.SessionTopic)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range ch {
			if event.Type != eventbus.EventTab {
				continue
			}
			active := int64(0)
			if event.Tab.ActiveTab != nil {
				active = int64(*event.Tab.ActiveTab)
			}
			a.log.Debug("tab event", "type", string(event.Tab.Type), "tab", int64(event.Tab.Tab.ID), "active", active)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// requireTab maps unknown ids to ErrTabNotFound; the session itself ignores them.
func (a *app) requireTab(id schema.WorkflowID) error {
	for _, tab := range a.session.Tabs() {
		if tab.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %d", schema.ErrTabNotFound, id)
}

func openBackend(ctx context.Context, cfg appconfig.StateConfig, logger pslog.Logger) (persist.Backend, error) {
	switch cfg.Backend {
	case appconfig.BackendFile:
		return persist.NewFileBackendWithLogger(cfg.Dir, logger)
	case appconfig.BackendSQLite:
		return persist.NewSQLiteBackend(cfg.SQLitePath)
	case appconfig.BackendRedis:
		return persist.NewRedisBackend(ctx, cfg.RedisAddr,
			persist.WithRedisDB(cfg.RedisDB),
			persist.WithRedisPrefix(cfg.RedisPrefix),
		)
	case appconfig.BackendMemory:
		return persist.NewMemoryBackend(), nil
	default:
		return nil, errors.Join(schema.ErrInvalidConfig, fmt.Errorf("unsupported state backend %q", cfg.Backend))
	}
}
