package app

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := `
store:
  path: ` + filepath.Join(dir, "visor.db") + `
server:
  enabled: false
watcher:
  settle_delay: 1000000
  poll_interval: 50000000
  event_timeout: 50000000
  recent_file_window: 1000000000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	a, err := New(configPath)
	require.NoError(t, err)
	t.Cleanup(func() { a.Stop() })
	return a
}

func TestNewBuildsEveryComponent(t *testing.T) {
	a := newTestApp(t)
	require.NotNil(t, a.store)
	require.NotNil(t, a.registry)
	require.NotNil(t, a.dashboard)
	require.NotNil(t, a.httpServer)
}

func TestStartAndStopRoundTrip(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Start(context.Background()))

	require.Eventually(t, func() bool {
		return a.pool.Stats().IsRunning
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, a.Stop())
}

func TestHandleHealthzReportsOK(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	a.handleHealthz(w, req)
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHandleDashboardReturnsEmptySnapshotForFreshStore(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	w := httptest.NewRecorder()

	a.handleDashboard(w, req)
	require.Equal(t, 200, w.Code)
	require.Equal(t, "[]\n", w.Body.String())
}

func TestHandleLineLogsReturns404ForUnknownLine(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest("GET", "/api/lines/999/logs", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "999"})
	w := httptest.NewRecorder()

	a.handleLineLogs(w, req)
	require.Equal(t, 404, w.Code)
}
