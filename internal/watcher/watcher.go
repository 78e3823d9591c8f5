// Package watcher runs one long-lived goroutine per production line,
// discovering candidate files via an OS filesystem watch with a polling
// fallback, and dispatching each to the shared worker pool for
// processing. Grounded on the original ingestion core's
// stock::watcher::watch_directory scheduling, reimplemented against
// github.com/fsnotify/fsnotify in place of the notify crate.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/RyugaHideki7/visor/internal/fileproc"
	"github.com/RyugaHideki7/visor/internal/metrics"
	"github.com/RyugaHideki7/visor/pkg/types"
	"github.com/RyugaHideki7/visor/pkg/workerpool"
)

// Config holds the scheduling parameters shared by every line watcher.
type Config struct {
	PollInterval     time.Duration
	EventTimeout     time.Duration
	RecentFileWindow time.Duration
}

// lineWatcher owns one fsnotify handle and the recent-file dedup map for
// a single production line.
type lineWatcher struct {
	line   *types.Line
	cfg    Config
	pool   *workerpool.WorkerPool
	proc   *fileproc.Processor
	logger *logrus.Logger

	stop chan struct{}
	done chan struct{}

	recentMu sync.Mutex
	recent   map[string]time.Time
}

func newLineWatcher(line *types.Line, cfg Config, pool *workerpool.WorkerPool, proc *fileproc.Processor, logger *logrus.Logger) *lineWatcher {
	return &lineWatcher{
		line:   line,
		cfg:    cfg,
		pool:   pool,
		proc:   proc,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		recent: make(map[string]time.Time),
	}
}

// run is the watcher's main loop: initial scan, fsnotify registration,
// then an event/poll loop until stop is signaled.
func (lw *lineWatcher) run() {
	defer close(lw.done)
	metrics.ActiveWatchers.Inc()
	defer metrics.ActiveWatchers.Dec()

	log := lw.logger.WithFields(logrus.Fields{"line": lw.line.Name, "path": lw.line.Path})

	if _, err := os.Stat(lw.line.Path); err != nil {
		log.WithError(err).Error("watch path does not exist, watcher exiting")
		return
	}

	lw.scan()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Error("failed to create filesystem watcher")
		return
	}
	defer fsw.Close()

	if err := fsw.Add(lw.line.Path); err != nil {
		log.WithError(err).Error("failed to register filesystem watch")
		return
	}

	log.Info("watcher started")

	pollTicker := time.NewTicker(lw.cfg.PollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-lw.stop:
			log.Info("watcher stopping")
			return

		case <-pollTicker.C:
			lw.evictRecent()
			lw.scan()

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				lw.consider(event.Name)
			}

		case fsErr, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.WithError(fsErr).Warn("filesystem watcher error")
		}
	}
}

// scan performs a directory listing, enqueuing every matching file not
// already claimed in the recent-file map — the polling fallback branch
// of the scheduling model, also used for the initial scan.
func (lw *lineWatcher) scan() {
	entries, err := os.ReadDir(lw.line.Path)
	if err != nil {
		lw.logger.WithFields(logrus.Fields{"line": lw.line.Name, "error": err}).Warn("directory scan failed")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lw.consider(filepath.Join(lw.line.Path, entry.Name()))
	}
}

// consider claims path in the recent-file map and dispatches it to the
// worker pool, unless it was already claimed within the dedup window or
// does not match the line's (prefix, extension) predicate.
func (lw *lineWatcher) consider(path string) {
	filename := filepath.Base(path)
	if strings.Contains(path, "visor_temp") {
		return
	}
	if !fileproc.Recognized(filename, lw.line.Prefix) {
		return
	}

	lw.recentMu.Lock()
	if _, claimed := lw.recent[path]; claimed {
		lw.recentMu.Unlock()
		return
	}
	lw.recent[path] = time.Now()
	lw.recentMu.Unlock()

	line := lw.line
	proc := lw.proc
	task := workerpool.Task{
		ID: path,
		Execute: func(ctx context.Context) error {
			return proc.ProcessFile(ctx, line, path)
		},
	}

	if err := lw.pool.Submit(task); err != nil {
		lw.logger.WithFields(logrus.Fields{"line": line.Name, "file": filename, "error": err}).Warn("failed to submit file for processing")
		lw.recentMu.Lock()
		delete(lw.recent, path)
		lw.recentMu.Unlock()
	}
}

// evictRecent drops entries older than the dedup window so that a file
// with the same name reappearing later is eligible again.
func (lw *lineWatcher) evictRecent() {
	cutoff := time.Now().Add(-lw.cfg.RecentFileWindow)
	lw.recentMu.Lock()
	defer lw.recentMu.Unlock()
	for path, seen := range lw.recent {
		if seen.Before(cutoff) {
			delete(lw.recent, path)
		}
	}
}

func (lw *lineWatcher) signalStop() {
	close(lw.stop)
	<-lw.done
}
