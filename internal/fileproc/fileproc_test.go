package fileproc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/RyugaHideki7/visor/internal/auditlog"
	"github.com/RyugaHideki7/visor/internal/sqlemit"
	"github.com/RyugaHideki7/visor/internal/store"
	"github.com/RyugaHideki7/visor/pkg/types"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	return l
}

func newTestProcessor(t *testing.T) (*Processor, *store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "visor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	p := New(st, sqlemit.New(), auditlog.New(), testLogger(), 0)
	return p, st, dir
}

func insertTestLine(watchDir string) *types.Line {
	return &types.Line{
		ID: 1, Name: "LINE01", Path: watchDir, Prefix: "ATEIS",
		FileFormat: types.FormatATEIS, Active: true,
	}
}

func TestRecognizedMatchesPrefixAndExtensionCaseInsensitively(t *testing.T) {
	require.True(t, Recognized("ateis_20260101.csv", "ATEIS"))
	require.True(t, Recognized("ATEIS_EXPORT.TXT", "ateis"))
	require.False(t, Recognized("logitron_export.csv", "ATEIS"))
	require.False(t, Recognized("ateis_export.bak", "ATEIS"))
}

func TestProcessFileMissingFileIsANoop(t *testing.T) {
	p, _, dir := newTestProcessor(t)
	line := insertTestLine(dir)
	err := p.ProcessFile(context.Background(), line, filepath.Join(dir, "does_not_exist.csv"))
	require.NoError(t, err)
}

func TestProcessFileWithoutSQLConfigRejectsFile(t *testing.T) {
	p, _, dir := newTestProcessor(t)
	line := insertTestLine(dir)

	srcPath := filepath.Join(dir, "ATEIS_20260101.csv")
	record := "S1;01012026;120000;ITEM1;LOT1;10;01012026;;M1;;;;;;;;\n"
	require.NoError(t, os.WriteFile(srcPath, []byte(record), 0o644))

	rejectedDir := filepath.Join(dir, "rejected")
	line.RejectedPath = rejectedDir

	err := p.ProcessFile(context.Background(), line, srcPath)
	require.Error(t, err)

	entries, err := os.ReadDir(rejectedDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = os.Stat(srcPath)
	require.True(t, os.IsNotExist(err))
}

func TestProcessFileDeletesQuarantinedFileWhenNoRejectedPathConfigured(t *testing.T) {
	p, _, dir := newTestProcessor(t)
	line := insertTestLine(dir)

	srcPath := filepath.Join(dir, "ATEIS_20260101.csv")
	require.NoError(t, os.WriteFile(srcPath, []byte("a;b;c\n"), 0o644))

	err := p.ProcessFile(context.Background(), line, srcPath)
	require.Error(t, err)

	quarantineDir := filepath.Join(dir, quarantineDirName)
	entries, statErr := os.ReadDir(quarantineDir)
	if statErr == nil {
		require.Empty(t, entries)
	}
}

func TestTimestampedPathPreservesExtension(t *testing.T) {
	p := timestampedPath("/archive", "ATEIS_20260101.csv")
	require.True(t, filepath.Ext(p) == ".csv")
	require.Contains(t, p, "ATEIS_20260101_")
}

func TestParseCSVHandlesFlexibleFieldCounts(t *testing.T) {
	records, err := parseCSV("a;b;c\nd;e\n")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, records[0], 3)
	require.Len(t, records[1], 2)
}

func TestProcessFileSettleDelayIsHonored(t *testing.T) {
	p, _, dir := newTestProcessor(t)
	p.settleDelay = 10 * time.Millisecond
	line := insertTestLine(dir)

	srcPath := filepath.Join(dir, "ATEIS_x.csv")
	require.NoError(t, os.WriteFile(srcPath, []byte("a;b\n"), 0o644))

	start := time.Now()
	_ = p.ProcessFile(context.Background(), line, srcPath)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
