// Package app wires together the embedded store, the SQL emitter, the
// per-line watchers, and the HTTP surface into the daemon's lifecycle,
// grounded on the teacher's internal/app New/Start/Stop/Run shape.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RyugaHideki7/visor/internal/auditlog"
	"github.com/RyugaHideki7/visor/internal/config"
	"github.com/RyugaHideki7/visor/internal/dashboard"
	"github.com/RyugaHideki7/visor/internal/fileproc"
	"github.com/RyugaHideki7/visor/internal/sqlemit"
	"github.com/RyugaHideki7/visor/internal/store"
	"github.com/RyugaHideki7/visor/internal/watcher"
	"github.com/RyugaHideki7/visor/pkg/task_manager"
	"github.com/RyugaHideki7/visor/pkg/workerpool"
)

// Application is the process's single long-lived orchestrator.
type Application struct {
	cfg    *config.Config
	logger *logrus.Logger

	store     *store.Store
	emitter   *sqlemit.Emitter
	audit     *auditlog.Logger
	pool      *workerpool.WorkerPool
	proc      *fileproc.Processor
	registry  *watcher.Registry
	dashboard *dashboard.Aggregator
	tasks     *task_manager.Manager

	httpServer *http.Server
}

// New loads configuration and constructs every component, but does not
// start any background work — that happens in Start.
func New(configFile string) (*Application, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := newLogger(cfg)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	emitter := sqlemit.New()
	audit := auditlog.New()
	proc := fileproc.New(st, emitter, audit, logger, cfg.Watcher.SettleDelay)

	pool := workerpool.New(workerpool.Config{
		MaxWorkers: cfg.Watcher.WorkerPoolSize,
		QueueSize:  cfg.Watcher.WorkerQueueSize,
	}, logger)

	registry := watcher.NewRegistry(watcher.Config{
		PollInterval:     cfg.Watcher.PollInterval,
		EventTimeout:     cfg.Watcher.EventTimeout,
		RecentFileWindow: cfg.Watcher.RecentFileWindow,
	}, pool, proc, logger)

	dash := dashboard.New(st)
	tasks := task_manager.New(task_manager.Config{}, logger)

	a := &Application{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		emitter:   emitter,
		audit:     audit,
		pool:      pool,
		proc:      proc,
		registry:  registry,
		dashboard: dash,
		tasks:     tasks,
	}
	a.httpServer = a.newHTTPServer()
	return a, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.App.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Start brings up the worker pool, starts a watcher for every active
// line, and (if enabled) the HTTP server.
func (a *Application) Start(ctx context.Context) error {
	if err := a.pool.Start(); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}

	if err := a.tasks.Start(ctx, "watcher-startup", func(taskCtx context.Context) error {
		return a.registry.StartAll(taskCtx, a.store)
	}); err != nil {
		return fmt.Errorf("start line watchers: %w", err)
	}

	if a.cfg.Server.Enabled {
		addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
		a.logger.WithField("addr", addr).Info("starting http server")
		go func() {
			if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.WithError(err).Error("http server stopped unexpectedly")
			}
		}()
	}

	a.logger.Info("visor ingestion daemon started")
	return nil
}

// Stop signals every watcher to exit, drains the worker pool, shuts down
// the HTTP server, and closes the store. In-flight file processing is
// allowed to complete naturally before the pool shutdown timeout.
func (a *Application) Stop() error {
	a.logger.Info("stopping visor ingestion daemon")

	a.registry.StopAll(15 * time.Second)

	if err := a.pool.Stop(); err != nil {
		a.logger.WithError(err).Warn("worker pool shutdown reported an error")
	}

	if a.cfg.Server.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("http server shutdown reported an error")
		}
	}

	a.tasks.Close()
	_ = a.emitter.Close()

	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// Run starts the application and blocks until SIGINT/SIGTERM, then stops
// it cleanly.
func (a *Application) Run() error {
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	return a.Stop()
}
