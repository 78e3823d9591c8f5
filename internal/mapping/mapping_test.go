package mapping

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RyugaHideki7/visor/pkg/types"
)

func TestMapRecordFileColumnAndParameterPrecedence(t *testing.T) {
	record := []string{"SSCC1", "20240101", "ITEM", "LOT1", "12,5"}
	mappings := []types.MappingRow{
		{SQLField: "YSSCC_0", FileColumn: "0"},
		{SQLField: "YDATE_0", FileColumn: "1", Transformation: "date"},
		{SQLField: "FCY_0", Parameter: "site"},
		{SQLField: "QTY_0", FileColumn: "4", Transformation: "decimal"},
	}
	params := types.ParameterSet{Site: "LYON01"}

	result := MapRecord(record, mappings, params)
	require.Equal(t, "SSCC1", result[0].Value)
	require.Equal(t, "01/01/2024", result[1].Value)
	require.Equal(t, "LYON01", result[2].Value)
	require.Equal(t, "12.5", result[3].Value)
}

func TestMapRecordParameterWinsOnlyWhenNonEmpty(t *testing.T) {
	record := []string{"FALLBACK"}
	mappings := []types.MappingRow{
		{SQLField: "X", Parameter: "", FileColumn: "0"},
	}
	result := MapRecord(record, mappings, types.ParameterSet{})
	require.Equal(t, "FALLBACK", result[0].Value)
}

func TestMapRecordDefaultParameterValues(t *testing.T) {
	mappings := []types.MappingRow{
		{SQLField: "UOM_0", Parameter: "unite"},
		{SQLField: "YFLGDEC_0", Parameter: "flag_dec"},
		{SQLField: "CREUSR_0", Parameter: "creusr_0"},
	}
	result := MapRecord(nil, mappings, types.ParameterSet{})
	require.Equal(t, "unité", result[0].Value)
	require.Equal(t, "1", result[1].Value)
	require.Equal(t, "VISOR", result[2].Value)
}

func TestMapRecordCombinedFileColumn(t *testing.T) {
	record := []string{"20240315", "153045"}
	mappings := []types.MappingRow{
		{SQLField: "CREDATTIM_0", FileColumn: "0-1", Transformation: "datetime_combine"},
	}
	result := MapRecord(record, mappings, types.ParameterSet{})
	require.Equal(t, "15/03/2024 15:30:45", result[0].Value)
}

func TestMapRecordOutOfRangeColumnYieldsEmpty(t *testing.T) {
	record := []string{"only-one"}
	mappings := []types.MappingRow{{SQLField: "X", FileColumn: "5"}}
	result := MapRecord(record, mappings, types.ParameterSet{})
	require.Equal(t, "", result[0].Value)
}
