package store

import "github.com/RyugaHideki7/visor/pkg/types"

// defaultMappingsFor returns the factory default mapping table for a
// file format, seeded the first time model_mappings has no rows for it.
func defaultMappingsFor(formatName string) []types.MappingRow {
	if formatName == types.FormatLogitron {
		return logitronDefaultMappings
	}
	return ateisDefaultMappings
}

var ateisDefaultMappings = []types.MappingRow{
	{SortOrder: 0, SQLField: "YSSCC_0", FileColumn: "0"},
	{SortOrder: 1, SQLField: "YDATE_0", FileColumn: "1", Transformation: "date"},
	{SortOrder: 2, SQLField: "YHEURE_0", FileColumn: "1", Transformation: "heure"},
	{SortOrder: 3, SQLField: "ITMREF_0", FileColumn: "5"},
	{SortOrder: 4, SQLField: "LOT_0", FileColumn: "7"},
	{SortOrder: 5, SQLField: "QTY_0", FileColumn: "9", Transformation: "decimal"},
	{SortOrder: 6, SQLField: "YDATDL_0", FileColumn: "8", Transformation: "date"},
	{SortOrder: 7, SQLField: "YNLIGN_0", FileColumn: "12"},
	{SortOrder: 8, SQLField: "MFGNUM_0", FileColumn: "18"},
	{SortOrder: 9, SQLField: "YCODEPOT_0", FileColumn: "4"},
	{SortOrder: 10, SQLField: "YPALETTE_0", FileColumn: "16"},
	{SortOrder: 11, SQLField: "YINTERCAL_0", FileColumn: "17"},
	{SortOrder: 12, SQLField: "FCY_0", Parameter: "site"},
	{SortOrder: 13, SQLField: "UOM_0", Parameter: "unite"},
	{SortOrder: 14, SQLField: "YFLGDEC_0", Parameter: "flag_dec", Transformation: "tinyint"},
	{SortOrder: 15, SQLField: "CREUSR_0", Parameter: "code_ligne"},
	{SortOrder: 16, SQLField: "CREDATTIM_0", FileColumn: "1", Transformation: "datetime"},
}

var logitronDefaultMappings = []types.MappingRow{
	{SortOrder: 0, SQLField: "YSSCC_0", FileColumn: "0"},
	{SortOrder: 1, SQLField: "YDATE_0", FileColumn: "1", Transformation: "date"},
	{SortOrder: 2, SQLField: "YHEURE_0", FileColumn: "2", Transformation: "heure"},
	{SortOrder: 3, SQLField: "CREDATTIM_0", FileColumn: "1-2", Transformation: "datetime_combine"},
	{SortOrder: 4, SQLField: "ITMREF_0", FileColumn: "3"},
	{SortOrder: 5, SQLField: "LOT_0", FileColumn: "4"},
	{SortOrder: 6, SQLField: "QTY_0", FileColumn: "5", Transformation: "decimal"},
	{SortOrder: 7, SQLField: "YDATDL_0", FileColumn: "7", Transformation: "date"},
	{SortOrder: 8, SQLField: "YNLIGN_0", FileColumn: "8"},
	{SortOrder: 9, SQLField: "MFGNUM_0", FileColumn: "13"},
	{SortOrder: 10, SQLField: "YCODEPOT_0", FileColumn: "14"},
	{SortOrder: 11, SQLField: "YPALETTE_0", FileColumn: "15", Transformation: "split_before_plus"},
	{SortOrder: 12, SQLField: "YINTERCAL_0", FileColumn: "15", Transformation: "split_after_plus"},
	{SortOrder: 13, SQLField: "FCY_0", Parameter: "site"},
	{SortOrder: 14, SQLField: "UOM_0", Parameter: "unite"},
	{SortOrder: 15, SQLField: "YFLGDEC_0", Parameter: "flag_dec", Transformation: "tinyint"},
	{SortOrder: 16, SQLField: "CREUSR_0", Parameter: "code_ligne"},
}

// defaultQueryFor returns the factory INSERT template for a format. Both
// templates bind 17 positional parameters (@P1..@P17); the trailing
// UPDDATTIM_0 column is a SQL-side literal (getdate()), not a bound
// mapping value, so the emitter's column/parameter counts legitimately
// differ by one — see internal/sqlemit for how that is handled.
func defaultQueryFor(formatName string) string {
	if formatName == types.FormatLogitron {
		return `INSERT INTO ITHRI.YINTDECL (YSSCC_0, YDATE_0, YHEURE_0, CREDATTIM_0, ITMREF_0, LOT_0, QTY_0, YDATDL_0, YNLIGN_0, MFGNUM_0, YCODEPOT_0, YPALETTE_0, YINTERCAL_0, FCY_0, UOM_0, YFLGDEC_0, CREUSR_0, UPDDATTIM_0) VALUES (@P1, @P2, @P3, @P4, @P5, @P6, @P7, @P8, @P9, @P10, @P11, @P12, @P13, @P14, @P15, @P16, @P17, getdate())`
	}
	return `INSERT INTO ITHRI.YINTDECL (YSSCC_0, YDATE_0, YHEURE_0, ITMREF_0, LOT_0, QTY_0, YDATDL_0, YNLIGN_0, MFGNUM_0, YCODEPOT_0, YPALETTE_0, YINTERCAL_0, FCY_0, UOM_0, YFLGDEC_0, CREUSR_0, CREDATTIM_0, UPDDATTIM_0) VALUES (@P1, @P2, @P3, @P4, @P5, @P6, @P7, @P8, @P9, @P10, @P11, @P12, @P13, @P14, @P15, @P16, @P17, getdate())`
}
