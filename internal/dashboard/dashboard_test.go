package dashboard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RyugaHideki7/visor/internal/store"
	"github.com/RyugaHideki7/visor/pkg/types"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "visor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStatusInactiveLineIsArret(t *testing.T) {
	line := &types.Line{Active: false}
	require.Equal(t, types.StatusArret, status(line, nil))
}

func TestStatusNeverProcessedIsAlerte(t *testing.T) {
	line := &types.Line{Active: true, IntervalCheck: 60, IntervalAlert: 120}
	require.Equal(t, types.StatusAlerte, status(line, nil))
}

func TestStatusRecentIsMarche(t *testing.T) {
	line := &types.Line{Active: true, IntervalCheck: 60, IntervalAlert: 120}
	recent := time.Now().Add(-10 * time.Minute)
	require.Equal(t, types.StatusMarche, status(line, &recent))
}

func TestStatusStaleIsAlerteThenArret(t *testing.T) {
	line := &types.Line{Active: true, IntervalCheck: 60, IntervalAlert: 120}
	mid := time.Now().Add(-90 * time.Minute)
	require.Equal(t, types.StatusAlerte, status(line, &mid))

	old := time.Now().Add(-200 * time.Minute)
	require.Equal(t, types.StatusArret, status(line, &old))
}

func TestCountMatchingCountsOnlyRecognizedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ATEIS_1.csv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ATEIS_2.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LOGITRON_1.csv"), []byte("x"), 0o644))

	require.Equal(t, 2, countMatching(dir, "ATEIS"))
	require.Equal(t, 0, countMatching("", "ATEIS"))
	require.Equal(t, 0, countMatching(filepath.Join(dir, "missing"), "ATEIS"))
}

func TestSnapshotReturnsEntryPerLine(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.LastProcessed(ctx, 1)
	require.NoError(t, err)

	agg := New(st)
	snapshot, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snapshot) // no lines configured in this test store
}
