package auditlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogLigneCreatesMonthlyFile(t *testing.T) {
	dir := t.TempDir()
	l := New()

	require.NoError(t, l.LogLigne("LINE01", dir, "started processing", "INFO"))

	expected := filepath.Join(dir, "LINE01_"+time.Now().Format("200601")+".log")
	content, err := os.ReadFile(expected)
	require.NoError(t, err)
	require.Contains(t, string(content), "[INFO] started processing")
}

func TestLogLigneAppendsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	l := New()

	require.NoError(t, l.LogLigne("LINE01", dir, "first", "INFO"))
	require.NoError(t, l.LogLigne("LINE01", dir, "second", "ERROR"))

	expected := filepath.Join(dir, "LINE01_"+time.Now().Format("200601")+".log")
	content, err := os.ReadFile(expected)
	require.NoError(t, err)
	require.Contains(t, string(content), "first")
	require.Contains(t, string(content), "second")
}

func TestLogLigneNoopWithoutPath(t *testing.T) {
	l := New()
	require.NoError(t, l.LogLigne("LINE01", "", "ignored", "INFO"))
}

func TestLogSQLRecordsStatusAndTruncatesQuery(t *testing.T) {
	dir := t.TempDir()
	l := New()

	longQuery := "INSERT INTO T VALUES (" + string(make([]byte, 600)) + ")"
	require.NoError(t, l.LogSQL("LINE01", dir, longQuery, map[string]string{"A": "1"}, false, "connection refused"))

	expected := filepath.Join(dir, "LINE01_sql_"+time.Now().Format("200601")+".log")
	content, err := os.ReadFile(expected)
	require.NoError(t, err)
	require.Contains(t, string(content), "Status: ERROR")
	require.Contains(t, string(content), "connection refused")
	require.Contains(t, string(content), longQuery[:500])
	require.NotContains(t, string(content), longQuery)
}
