// Package mapping turns a parsed CSV record into the named SQL-field
// values an emitter will bind, following the exact column/parameter
// precedence of the original ingestion core's
// map_record_with_mappings_and_params/get_parameter_value/get_file_value.
package mapping

import (
	"strconv"
	"strings"

	"github.com/RyugaHideki7/visor/internal/transform"
	"github.com/RyugaHideki7/visor/pkg/types"
)

// MapRecord applies every mapping row to record, returning an ordered
// slice of (sql_field, value) pairs — ordering matters because it is the
// fallback parameter order when the query template's column list cannot
// be parsed.
func MapRecord(record []string, mappings []types.MappingRow, params types.ParameterSet) []FieldValue {
	out := make([]FieldValue, 0, len(mappings))
	for _, m := range mappings {
		value := resolve(record, m, params)
		if m.Transformation != "" {
			value = transform.Apply(value, m.Transformation)
		}
		out = append(out, FieldValue{Field: m.SQLField, Value: value})
	}
	return out
}

// FieldValue is one resolved (and transformed) output column.
type FieldValue struct {
	Field string
	Value string
}

// resolve picks the parameter value when the mapping names a non-empty
// parameter; otherwise it falls through to the file column, exactly as
// the original: a parameter only "wins" when explicitly set and
// non-empty, never silently overriding a configured file_column.
func resolve(record []string, m types.MappingRow, params types.ParameterSet) string {
	if m.Parameter != "" {
		return parameterValue(m.Parameter, params)
	}
	if m.FileColumn != "" {
		return fileValue(record, m.FileColumn)
	}
	return ""
}

func parameterValue(param string, params types.ParameterSet) string {
	switch strings.ToLower(param) {
	case "site", "fcy_0":
		return params.Site
	case "unite", "uom_0":
		if params.Unite == "" {
			return "unité"
		}
		return params.Unite
	case "flag_dec", "yflgdec_0":
		if params.FlagDec == "" {
			return "1"
		}
		return params.FlagDec
	case "code_ligne", "ynlign_0":
		return params.CodeLigne
	case "creusr_0", "user":
		return "VISOR"
	default:
		return ""
	}
}

// fileValue resolves a file_column spec: a single numeric index, or two
// indices joined by '-' whose values are joined by ';' (used by
// datetime_combine mappings to carry a date column and a time column
// together).
func fileValue(record []string, fileColumn string) string {
	if strings.Contains(fileColumn, "-") {
		parts := strings.SplitN(fileColumn, "-", 2)
		a := fieldAt(record, parts[0])
		b := fieldAt(record, parts[1])
		return a + ";" + b
	}
	return fieldAt(record, fileColumn)
}

func fieldAt(record []string, idxStr string) string {
	idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
	if err != nil || idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
