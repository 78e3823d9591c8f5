package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/RyugaHideki7/visor/internal/metrics"
)

func (a *Application) newHTTPServer() *http.Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	router.Handle(a.cfg.Metrics.Path, metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/api/dashboard", a.handleDashboard).Methods(http.MethodGet)
	router.HandleFunc("/api/lines/{id}/logs", a.handleLineLogs).Methods(http.MethodGet)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func (a *Application) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"tasks":  a.tasks.AllStatuses(),
	})
}

func (a *Application) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.dashboard.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleLineLogs tails the requested line's current-month disk log.
func (a *Application) handleLineLogs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid line id"})
		return
	}

	line, err := a.store.GetLine(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "line not found"})
		return
	}
	if line.LogPath == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"lines": []string{}})
		return
	}

	path := filepath.Join(line.LogPath, fmt.Sprintf("%s_%s.log", line.Name, time.Now().Format("200601")))
	lines, err := tailLines(path, 200)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"lines": []string{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}

// tailLines returns at most the last max lines of the file at path.
func tailLines(path string, max int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(all) <= max {
		return all, nil
	}
	return all[len(all)-max:], nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
