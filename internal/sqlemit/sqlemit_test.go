package sqlemit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RyugaHideki7/visor/pkg/types"
)

const ateisTemplate = `INSERT INTO ITHRI.YINTDECL (YSSCC_0, YDATE_0, YHEURE_0, ITMREF_0, LOT_0, QTY_0, YDATDL_0, YNLIGN_0, MFGNUM_0, YCODEPOT_0, YPALETTE_0, YINTERCAL_0, FCY_0, UOM_0, YFLGDEC_0, CREUSR_0, CREDATTIM_0, UPDDATTIM_0) VALUES (@P1, @P2, @P3, @P4, @P5, @P6, @P7, @P8, @P9, @P10, @P11, @P12, @P13, @P14, @P15, @P16, @P17, getdate())`

func TestColumnsFromTemplateParsesAllColumns(t *testing.T) {
	cols := ColumnsFromTemplate(ateisTemplate)
	require.Len(t, cols, 18)
	require.Equal(t, "YSSCC_0", cols[0])
	require.Equal(t, "UPDDATTIM_0", cols[17])
}

func TestColumnsFromTemplateReturnsNilWhenUnparsable(t *testing.T) {
	require.Nil(t, ColumnsFromTemplate("not a query"))
}

func TestOrderedValuesDropsUnboundTrailingColumn(t *testing.T) {
	mapped := map[string]string{
		"YSSCC_0": "S1", "YDATE_0": "01/01/2024", "YHEURE_0": "120000",
		"ITMREF_0": "I1", "LOT_0": "L1", "QTY_0": "1.0", "YDATDL_0": "01/01/2024",
		"YNLIGN_0": "N1", "MFGNUM_0": "M1", "YCODEPOT_0": "C1", "YPALETTE_0": "P1",
		"YINTERCAL_0": "IC1", "FCY_0": "SITE", "UOM_0": "unité", "YFLGDEC_0": "1",
		"CREUSR_0": "VISOR", "CREDATTIM_0": "01/01/2024 12:00:00",
	}
	values := OrderedValues(ateisTemplate, mapped, nil)
	require.Len(t, values, 17)
	require.Equal(t, "S1", values[0])
}

func TestOrderedValuesFallsBackToDeclarationOrder(t *testing.T) {
	mapped := map[string]string{"A": "1", "B": "2"}
	values := OrderedValues("not parseable @P1 @P2", mapped, []string{"A", "B"})
	require.Equal(t, []interface{}{"1", "2"}, values)
}

func TestIsTransientMatchesKnownConnectionMarkers(t *testing.T) {
	require.True(t, IsTransient(errors.New("login failed for user 'visor'")))
	require.True(t, IsTransient(errors.New("dial tcp: connection refused")))
	require.True(t, IsTransient(errors.New("TCP Provider: Error code 0x102")))
	require.False(t, IsTransient(errors.New("String or binary data would be truncated")))
	require.False(t, IsTransient(nil))
}

func TestConnectRejectsDisabledConfig(t *testing.T) {
	e := New()
	err := e.Connect(&types.SQLServerConfig{Enabled: false})
	require.Error(t, err)
}

func TestConnectRejectsIncompleteConfig(t *testing.T) {
	e := New()
	err := e.Connect(&types.SQLServerConfig{Enabled: true, Server: "host"})
	require.Error(t, err)
}

func TestBuildDSNIncludesHostAndPort(t *testing.T) {
	dsn := buildDSN(&types.SQLServerConfig{
		Server: "erp-sql:1433", Username: "visor", Password: "secret", Database: "ithri", Enabled: true,
	})
	require.Contains(t, dsn, "erp-sql:1433")
	require.Contains(t, dsn, "database=ithri")
}
