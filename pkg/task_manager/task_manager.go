// Package task_manager tracks named background goroutines (startup
// initialization, periodic housekeeping) with heartbeats, so internal/app
// can expose liveness at /healthz the same way the dashboard exposes
// per-line liveness.
package task_manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config controls heartbeat and cleanup cadence.
type Config struct {
	HeartbeatInterval time.Duration
	TaskTimeout       time.Duration
	CleanupInterval   time.Duration
}

// Status is the externally visible state of one tracked task.
type Status struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	ErrorCount    int64     `json:"error_count"`
	LastError     string    `json:"last_error,omitempty"`
}

type task struct {
	id            string
	fn            func(context.Context) error
	state         string
	startedAt     time.Time
	lastHeartbeat time.Time
	errorCount    int64
	lastError     string
	ctx           context.Context
	cancel        context.CancelFunc
	done          chan struct{}
}

// Manager is a registry of named background tasks.
type Manager struct {
	config Config
	tasks  map[string]*task
	mutex  sync.RWMutex
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(config Config, logger *logrus.Logger) *Manager {
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = 30 * time.Second
	}
	if config.TaskTimeout == 0 {
		config.TaskTimeout = 5 * time.Minute
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	tm := &Manager{
		config: config,
		tasks:  make(map[string]*task),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		tm.cleanupLoop()
	}()

	return tm
}

// Start registers and runs fn under taskID. Restarts a prior task with
// the same ID if it is no longer running.
func (tm *Manager) Start(ctx context.Context, taskID string, fn func(context.Context) error) error {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if existing, ok := tm.tasks[taskID]; ok {
		if existing.state == "running" {
			return fmt.Errorf("task %s is already running", taskID)
		}
		existing.cancel()
		<-existing.done
	}

	taskCtx, taskCancel := context.WithCancel(ctx)
	t := &task{
		id:            taskID,
		fn:            fn,
		state:         "running",
		startedAt:     time.Now(),
		lastHeartbeat: time.Now(),
		ctx:           taskCtx,
		cancel:        taskCancel,
		done:          make(chan struct{}),
	}
	tm.tasks[taskID] = t

	go tm.run(t)

	tm.logger.WithField("task_id", taskID).Info("task started")
	return nil
}

func (tm *Manager) run(t *task) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			tm.mutex.Lock()
			t.state = "failed"
			t.errorCount++
			t.lastError = fmt.Sprintf("panic: %v", r)
			tm.mutex.Unlock()
			tm.logger.WithFields(logrus.Fields{"task_id": t.id, "error": r}).Error("task panicked")
		}
	}()

	err := t.fn(t.ctx)

	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	if err != nil {
		t.state = "failed"
		t.errorCount++
		t.lastError = err.Error()
		tm.logger.WithFields(logrus.Fields{"task_id": t.id, "error": err}).Error("task failed")
		return
	}
	t.state = "completed"
	t.lastError = ""
	tm.logger.WithField("task_id", t.id).Info("task completed")
}

// Stop cancels a running task and waits up to 10s for it to exit.
func (tm *Manager) Stop(taskID string) error {
	tm.mutex.Lock()
	t, exists := tm.tasks[taskID]
	tm.mutex.Unlock()
	if !exists {
		return fmt.Errorf("task %s not found", taskID)
	}
	if t.state != "running" {
		return fmt.Errorf("task %s is not running", taskID)
	}

	t.cancel()
	select {
	case <-t.done:
		tm.mutex.Lock()
		t.state = "stopped"
		tm.mutex.Unlock()
		tm.logger.WithField("task_id", taskID).Info("task stopped")
	case <-time.After(10 * time.Second):
		tm.mutex.Lock()
		t.state = "failed"
		t.lastError = "stop timeout"
		tm.mutex.Unlock()
		tm.logger.WithField("task_id", taskID).Warn("task stop timed out")
	}
	return nil
}

// Heartbeat refreshes a task's liveness timestamp.
func (tm *Manager) Heartbeat(taskID string) error {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	t, exists := tm.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %s not found", taskID)
	}
	t.lastHeartbeat = time.Now()
	return nil
}

func (tm *Manager) Status(taskID string) Status {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	t, exists := tm.tasks[taskID]
	if !exists {
		return Status{ID: taskID, State: "not_found"}
	}
	return toStatus(t)
}

func (tm *Manager) AllStatuses() map[string]Status {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	result := make(map[string]Status, len(tm.tasks))
	for id, t := range tm.tasks {
		result[id] = toStatus(t)
	}
	return result
}

func toStatus(t *task) Status {
	return Status{
		ID:            t.id,
		State:         t.state,
		StartedAt:     t.startedAt,
		LastHeartbeat: t.lastHeartbeat,
		ErrorCount:    t.errorCount,
		LastError:     t.lastError,
	}
}

func (tm *Manager) cleanupLoop() {
	ticker := time.NewTicker(tm.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case <-ticker.C:
			tm.cleanup()
		}
	}
}

func (tm *Manager) cleanup() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	now := time.Now()
	var stale []string

	for id, t := range tm.tasks {
		if t.state == "running" && now.Sub(t.lastHeartbeat) > tm.config.TaskTimeout {
			tm.logger.WithField("task_id", id).Warn("task heartbeat timeout, stopping")
			t.cancel()
			t.state = "failed"
			t.lastError = "heartbeat timeout"
		}
		if t.state != "running" && now.Sub(t.startedAt) > time.Hour {
			stale = append(stale, id)
		}
	}

	for _, id := range stale {
		delete(tm.tasks, id)
	}
}

// Close cancels every tracked task and waits for them to exit.
func (tm *Manager) Close() {
	tm.mutex.Lock()
	tm.cancel()
	tm.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		tm.logger.Warn("timeout waiting for task manager goroutines to stop")
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	for id, t := range tm.tasks {
		if t.state == "running" {
			t.cancel()
			select {
			case <-t.done:
			case <-time.After(5 * time.Second):
				tm.logger.WithField("task_id", id).Warn("task cleanup timed out")
			}
		}
	}
}
