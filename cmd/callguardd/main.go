package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-callguard/internal/callguard/common/clock"
	"github.com/haukened/rr-callguard/internal/callguard/common/log"
	"github.com/haukened/rr-callguard/internal/callguard/common/metrics"
	"github.com/haukened/rr-callguard/internal/callguard/config"
	"github.com/haukened/rr-callguard/internal/callguard/gateways/httpapi"
	"github.com/haukened/rr-callguard/internal/callguard/gateways/transport"
	"github.com/haukened/rr-callguard/internal/callguard/infra/boltdb"
	calllogbolt "github.com/haukened/rr-callguard/internal/callguard/repos/calllog/bolt"
	rulesbolt "github.com/haukened/rr-callguard/internal/callguard/repos/rules/bolt"
	"github.com/haukened/rr-callguard/internal/callguard/repos/ruleset"
	"github.com/haukened/rr-callguard/internal/callguard/repos/ruleset/bloom"
	"github.com/haukened/rr-callguard/internal/callguard/repos/ruleset/lru"
	settingsbolt "github.com/haukened/rr-callguard/internal/callguard/repos/settings/bolt"
	"github.com/haukened/rr-callguard/internal/callguard/services/history"
	"github.com/haukened/rr-callguard/internal/callguard/services/rules"
	"github.com/haukened/rr-callguard/internal/callguard/services/screening"
	"github.com/haukened/rr-callguard/internal/callguard/services/settings"
)

const (
	version = "0.1.0-dev"
	appName = "callguardd"

	defaultShutdownTimeout = 10 * time.Second
)

// Application holds every long-lived component of the daemon.
type Application struct {
	config    *config.AppConfig
	db        *bbolt.DB
	ruleset   ruleset.Repository
	recorder  *screening.AsyncRecorder
	pruner    *history.Pruner
	handler   http.Handler
	transport *transport.HTTPTransport
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"app":        appName,
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.Log.Level,
		"addr":       cfg.HTTP.Addr,
		"db":         cfg.DB.Path,
		"cache_size": cfg.Screen.CacheSize,
		"retention":  cfg.Retention.Days,
	}, "Starting callguard")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}
	log.Info(nil, "callguard stopped gracefully")
}

// buildApplication opens storage and wires every layer together. On error
// the database is closed again.
func buildApplication(cfg *config.AppConfig) (app *Application, err error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	db, err := boltdb.Open(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	ruleStore, err := rulesbolt.New(db)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule store: %w", err)
	}
	callStore, err := calllogbolt.New(db)
	if err != nil {
		return nil, fmt.Errorf("failed to open call log store: %w", err)
	}
	settingsStore, err := settingsbolt.New(db)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var factory ruleset.BloomFactory
	if cfg.Screen.BloomFPRate > 0 {
		factory = bloom.NewFactory(bloom.NewSizer())
	}
	snapshots := ruleset.NewRepository(ruleset.Options{
		Store:   ruleStore,
		Factory: factory,
		FPRate:  cfg.Screen.BloomFPRate,
		Metrics: m,
	})
	cache, err := lru.New(cfg.Screen.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}

	settingsSvc, err := settings.NewService(settingsStore, logger)
	if err != nil {
		return nil, err
	}
	rulesSvc := rules.NewService(rules.Options{
		Store:     ruleStore,
		Refresher: snapshots,
		Cache:     cache,
		Clock:     clk,
		Logger:    logger,
	})
	if err := firstLaunch(cfg, settingsSvc, rulesSvc); err != nil {
		return nil, err
	}

	recorder := screening.NewAsyncRecorder(screening.RecorderOptions{
		Writer:    callStore,
		Logger:    log.With(logger, map[string]any{"component": "recorder"}),
		Metrics:   m,
		QueueSize: cfg.Recorder.QueueSize,
		Workers:   cfg.Recorder.Workers,
	})
	screener := screening.NewScreener(screening.ScreenerOptions{
		Rules:    snapshots,
		Settings: settingsSvc,
		Cache:    cache,
		Recorder: recorder,
		Clock:    clk,
		Logger:   log.With(logger, map[string]any{"component": "screener"}),
		Metrics:  m,
	})

	firstDay := cfg.Stats.Weekday()
	historySvc := history.NewService(history.Options{
		Store:    callStore,
		Clock:    clk,
		Logger:   logger,
		FirstDay: &firstDay,
	})
	pruner := history.NewPruner(history.PrunerOptions{
		Service:  historySvc,
		Settings: settingsSvc,
		Days:     cfg.Retention.Days,
		Interval: cfg.Retention.Interval,
		Logger:   log.With(logger, map[string]any{"component": "pruner"}),
		Metrics:  m,
	})

	handler := httpapi.NewRouter(httpapi.Options{
		Screener:       screener,
		Rules:          rulesSvc,
		History:        historySvc,
		Settings:       settingsSvc,
		Logger:         log.With(logger, map[string]any{"component": "http"}),
		Gatherer:       reg,
		Health:         func(context.Context) error { return db.View(func(*bbolt.Tx) error { return nil }) },
		ScreenTimeout:  cfg.HTTP.ScreenTimeout,
		RetentionDays:  cfg.Retention.Days,
		AllowedOrigins: cfg.HTTP.CORSOrigins,
	})

	return &Application{
		config:    cfg,
		db:        db,
		ruleset:   snapshots,
		recorder:  recorder,
		pruner:    pruner,
		handler:   handler,
		transport: transport.NewHTTPTransport(cfg.HTTP.Addr, logger),
	}, nil
}

// firstLaunch seeds the built-in rules once, then clears the first-launch flag.
func firstLaunch(cfg *config.AppConfig, s *settings.Service, r *rules.Service) error {
	if !s.Get().FirstLaunch {
		return nil
	}
	if cfg.SeedDefaults {
		n, err := r.LoadDefaults()
		if err != nil {
			return fmt.Errorf("failed to seed default rules: %w", err)
		}
		log.Info(map[string]any{"count": n}, "Default rules seeded")
	}
	return s.CompleteFirstLaunch()
}

// Run serves until ctx is cancelled, then drains requests and queued records.
func (app *Application) Run(ctx context.Context) error {
	if err := app.ruleset.Refresh(); err != nil {
		// screening fails open until the next successful refresh
		log.Error(map[string]any{"error": err}, "Initial rule snapshot failed")
	}

	// The listener outlives ctx so Stop can drain in-flight requests.
	if err := app.transport.Start(context.WithoutCancel(ctx), app.handler); err != nil {
		return fmt.Errorf("failed to start HTTP transport: %w", err)
	}
	log.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": "http",
	}, "callguard started")

	pruneCtx, stopPruner := context.WithCancel(ctx)
	pruned := make(chan struct{})
	go func() {
		defer close(pruned)
		app.pruner.Run(pruneCtx)
	}()

	<-ctx.Done()
	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.transport.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("transport: %w", err))
	}
	stopPruner()
	<-pruned
	if err := app.recorder.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := app.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if len(errs) > 0 {
		log.Warn(map[string]any{"error": errors.Join(errs...)}, "Shutdown incomplete")
		return errors.Join(errs...)
	}
	log.Info(nil, "Graceful shutdown completed")
	return nil
}

// Address returns the address the API listens on.
func (app *Application) Address() string {
	return app.transport.Address()
}
