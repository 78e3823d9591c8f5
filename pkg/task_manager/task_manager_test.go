package task_manager

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		TaskTimeout:       5 * time.Minute,
		CleanupInterval:   time.Minute,
	}
}

func TestManagerRunsTaskToCompletion(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	tm := New(testConfig(), logger)
	defer tm.Close()

	done := make(chan struct{})
	err := tm.Start(context.Background(), "settle-scan", func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run within timeout")
	}

	require.Eventually(t, func() bool {
		return tm.Status("settle-scan").State == "completed"
	}, time.Second, 10*time.Millisecond)
}

func TestManagerRecordsTaskFailure(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	tm := New(testConfig(), logger)
	defer tm.Close()

	err := tm.Start(context.Background(), "bad-task", func(ctx context.Context) error {
		return fmt.Errorf("boom")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st := tm.Status("bad-task")
		return st.State == "failed" && st.LastError == "boom"
	}, time.Second, 10*time.Millisecond)
}

func TestManagerRecoversFromPanic(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	tm := New(testConfig(), logger)
	defer tm.Close()

	err := tm.Start(context.Background(), "panicky", func(ctx context.Context) error {
		panic("unexpected")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return tm.Status("panicky").State == "failed"
	}, time.Second, 10*time.Millisecond)
}

func TestManagerStopCancelsRunningTask(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	tm := New(testConfig(), logger)
	defer tm.Close()

	started := make(chan struct{})
	err := tm.Start(context.Background(), "watch-loop", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, tm.Stop("watch-loop"))
	require.Equal(t, "stopped", tm.Status("watch-loop").State)
}

func TestManagerUnknownTaskStatus(t *testing.T) {
	logger := logrus.New()
	tm := New(testConfig(), logger)
	defer tm.Close()

	st := tm.Status("nope")
	require.Equal(t, "not_found", st.State)
}
