// Package auditlog writes the per-line, month-rolling text logs that sit
// alongside the embedded store's logs table, grounded on the original
// ingestion core's DiskLogger::log_ligne/log_sql and on the teacher's
// rolling-file approach in internal/sinks/local_file_sink.go (here
// trimmed to the plain, uncompressed append-only files this domain
// calls for).
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/RyugaHideki7/visor/pkg/errors"
)

// Logger appends human-readable entries to <logPath>/<lineName>_YYYYMM.log
// and <logPath>/<lineName>_sql_YYYYMM.log.
type Logger struct {
	mu sync.Mutex
}

func New() *Logger {
	return &Logger{}
}

// LogLigne appends a timestamped, leveled line to the line's monthly
// processing log.
func (l *Logger) LogLigne(lineName, logPath, message, logType string) error {
	if logPath == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(logPath, 0o755); err != nil {
		return apperrors.Of(apperrors.KindDisposeIO, "auditlog", "log_ligne", "failed to create log directory", err)
	}

	path := filepath.Join(logPath, fmt.Sprintf("%s_%s.log", lineName, time.Now().Format("200601")))
	line := fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), logType, message)
	return appendFile(path, line)
}

// LogSQL appends a structured record of a single SQL Server attempt,
// truncating the query text to 500 characters the way the original does.
func (l *Logger) LogSQL(lineName, logPath, query string, values map[string]string, success bool, errMsg string) error {
	if logPath == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(logPath, 0o755); err != nil {
		return apperrors.Of(apperrors.KindDisposeIO, "auditlog", "log_sql", "failed to create log directory", err)
	}

	path := filepath.Join(logPath, fmt.Sprintf("%s_sql_%s.log", lineName, time.Now().Format("200601")))

	truncated := query
	if runes := []rune(truncated); len(runes) > 500 {
		truncated = string(runes[:500])
	}
	valuesJSON, _ := json.Marshal(values)

	status := "SUCCESS"
	if !success {
		status = "ERROR"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Query: %s\n", time.Now().Format("2006-01-02 15:04:05"), truncated)
	fmt.Fprintf(&b, "Values: %s\n", valuesJSON)
	fmt.Fprintf(&b, "Status: %s\n", status)
	if errMsg != "" {
		fmt.Fprintf(&b, "Error: %s\n", errMsg)
	}
	b.WriteString(strings.Repeat("-", 80))
	b.WriteString("\n")

	return appendFile(path, b.String())
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperrors.Of(apperrors.KindDisposeIO, "auditlog", "append", "failed to open log file", err).
			WithMetadata("path", path)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return apperrors.Of(apperrors.KindDisposeIO, "auditlog", "append", "failed to write log file", err).
			WithMetadata("path", path)
	}
	return nil
}
