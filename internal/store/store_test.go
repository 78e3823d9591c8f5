package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RyugaHideki7/visor/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "visor.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSeedsDefaultMappingsAndQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ateis, err := s.ModelMappings(ctx, types.FormatATEIS)
	require.NoError(t, err)
	require.Len(t, ateis, 17)
	require.Equal(t, "YSSCC_0", ateis[0].SQLField)

	logitron, err := s.ModelMappings(ctx, types.FormatLogitron)
	require.NoError(t, err)
	require.Len(t, logitron, 17)

	q, err := s.QueryTemplate(ctx, types.FormatATEIS)
	require.NoError(t, err)
	require.Contains(t, q, "INSERT INTO ITHRI.YINTDECL")
	require.Contains(t, q, "getdate()")
}

func TestUpdateLineStatsAndListActiveLines(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lines (name, path, prefix, active) VALUES (?, ?, ?, 1)`,
		"LINE01", "/data/line01", "LIGNE1")
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	require.NoError(t, s.UpdateLineStats(ctx, id, true))

	line, err := s.GetLine(ctx, id)
	require.NoError(t, err)
	require.Equal(t, types.StatusMarche, line.EtatActuel)
	require.NotNil(t, line.LastFileTime)

	actives, err := s.ListActiveLines(ctx)
	require.NoError(t, err)
	require.Len(t, actives, 1)
}

func TestRecordProductionAndCountSuccessSince(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordProduction(ctx, &types.ProductionDataRecord{
		LineID: 1, Filename: "x.csv", ProcessedAt: time.Now(), Status: "SUCCESS", Message: "{}",
	}))

	n, err := s.CountSuccessSince(ctx, 1, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestSQLServerConfigDisabledByDefault(t *testing.T) {
	s := openTestStore(t)
	cfg, err := s.SQLServerConfig(context.Background())
	require.NoError(t, err)
	require.False(t, cfg.Enabled)
}
