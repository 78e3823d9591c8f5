package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RyugaHideki7/visor/internal/fileproc"
	"github.com/RyugaHideki7/visor/internal/store"
	"github.com/RyugaHideki7/visor/pkg/types"
	"github.com/RyugaHideki7/visor/pkg/workerpool"
)

// Registry is the process-wide line_id -> watcher map, grounded on the
// original ingestion core's stock::registry::WatcherState. Start and
// Stop are idempotent; the registry mutex's scope never extends across
// file I/O.
type Registry struct {
	mu       sync.Mutex
	watchers map[int64]*lineWatcher

	cfg    Config
	pool   *workerpool.WorkerPool
	proc   *fileproc.Processor
	logger *logrus.Logger
}

func NewRegistry(cfg Config, pool *workerpool.WorkerPool, proc *fileproc.Processor, logger *logrus.Logger) *Registry {
	return &Registry{
		watchers: make(map[int64]*lineWatcher),
		cfg:      cfg,
		pool:     pool,
		proc:     proc,
		logger:   logger,
	}
}

// Start spawns a watcher goroutine for line, unless one is already
// registered for its id.
func (r *Registry) Start(line *types.Line) error {
	r.mu.Lock()
	if _, exists := r.watchers[line.ID]; exists {
		r.mu.Unlock()
		return nil
	}
	lw := newLineWatcher(line, r.cfg, r.pool, r.proc, r.logger)
	r.watchers[line.ID] = lw
	r.mu.Unlock()

	go lw.run()
	return nil
}

// Stop signals the watcher for lineID to exit and waits for it to do so,
// then removes it from the registry. It is a no-op if lineID has no
// registered watcher.
func (r *Registry) Stop(lineID int64) error {
	r.mu.Lock()
	lw, exists := r.watchers[lineID]
	r.mu.Unlock()

	if !exists {
		return nil
	}

	// lw stays registered (so a concurrent Start for this id is a no-op)
	// until its goroutine has actually exited, then we reclaim the slot.
	lw.signalStop()

	r.mu.Lock()
	if r.watchers[lineID] == lw {
		delete(r.watchers, lineID)
	}
	r.mu.Unlock()
	return nil
}

// IsRunning reports whether lineID currently has a registered watcher.
func (r *Registry) IsRunning(lineID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.watchers[lineID]
	return exists
}

// Running returns the ids of every currently registered watcher.
func (r *Registry) Running() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.watchers))
	for id := range r.watchers {
		ids = append(ids, id)
	}
	return ids
}

// StartAll starts a watcher for every currently active line, grounded on
// the original's process-startup routine.
func (r *Registry) StartAll(ctx context.Context, st *store.Store) error {
	lines, err := st.ListActiveLines(ctx)
	if err != nil {
		return fmt.Errorf("list active lines: %w", err)
	}
	for _, line := range lines {
		if err := r.Start(line); err != nil {
			r.logger.WithFields(logrus.Fields{"line": line.Name, "error": err}).Error("failed to start watcher")
		}
	}
	return nil
}

// StopAll signals every registered watcher to stop and waits (with a cap
// of timeout) for them all to exit.
func (r *Registry) StopAll(timeout time.Duration) {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.watchers))
	for id := range r.watchers {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, id := range ids {
			r.Stop(id)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		r.logger.Warn("timed out waiting for watchers to stop")
	}
}
