// Package transform implements the field-level transformation tags
// applied by the row mapper, reimplemented field-for-field from the
// original ingestion core's apply_transformation/apply_split.
package transform

import (
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"02-01-06",
	"02.01.06",
	"20060102",
}

var datetimeLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"20060102 150405",
	"20060102150405",
	"02/01/2006",
	"2006-01-02",
	"20060102",
}

var combineDateLayouts = dateLayouts
var combineTimeLayouts = []string{"15:04:05", "15.04.05", "150405", "15:04", "15.04"}

// Apply dispatches on the transformation tag, falling through to the
// value unchanged for unrecognized or empty tags.
func Apply(value, tag string) string {
	switch tag {
	case "date":
		return applyDate(value)
	case "heure":
		return applyHeure(value)
	case "datetime":
		return applyDatetime(value)
	case "decimal":
		return applyDecimal(value)
	case "tinyint":
		return applyTinyint(value)
	case "current_datetime":
		return time.Now().Format("02/01/2006 15:04:05")
	case "datetime_combine":
		return applyDatetimeCombine(value)
	case "split_before_plus":
		return applySplit(value, "before")
	case "split_after_plus":
		return applySplit(value, "after")
	default:
		return value
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func applyDate(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) >= 8 && allDigits(trimmed[:8]) {
		if t, err := time.Parse("20060102", trimmed[:8]); err == nil {
			return t.Format("02/01/2006")
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return time.Now().Format("02/01/2006")
}

// applyHeure extracts an HHMMSS string by digit-filtering then slicing,
// exactly as the original's length-keyed branches: >=14 chars take
// [8:14], >=12 take [8:12]+"00", >=6 take the first 6, >=4 take the
// first 4 padded with "00", otherwise a default of all zeros.
func applyHeure(value string) string {
	digits := filterDigits(value)
	switch {
	case len(digits) >= 14:
		return digits[8:14]
	case len(digits) >= 12:
		return digits[8:12] + "00"
	case len(digits) >= 6:
		return digits[:6]
	case len(digits) >= 4:
		return digits[:4] + "00"
	default:
		return "000000"
	}
}

func filterDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func applyDatetime(value string) string {
	trimmed := strings.TrimSpace(value)
	digits := ""
	if allDigits(trimmed) {
		digits = trimmed
	}
	if len(digits) >= 14 {
		if t, err := time.Parse("20060102150405", digits[:14]); err == nil {
			return t.Format("02/01/2006 15:04:05")
		}
	}
	if len(digits) >= 8 {
		if t, err := time.Parse("20060102", digits[:8]); err == nil {
			return t.Format("02/01/2006 15:04:05")
		}
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("02/01/2006 15:04:05")
		}
	}
	return time.Now().Format("02/01/2006 15:04:05")
}

func applyDecimal(value string) string {
	replaced := strings.ReplaceAll(value, ",", ".")
	var b strings.Builder
	for _, r := range replaced {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func applyTinyint(value string) string {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return "1"
	}
	if n == 2 {
		return "2"
	}
	return "1"
}

// applyDatetimeCombine handles a "date;time" composite field (value
// already split on ';' by the caller, i.e. the two file columns joined
// by the mapper's get_file_value), trying every date/time layout pair.
func applyDatetimeCombine(value string) string {
	parts := strings.SplitN(value, ";", 2)
	if len(parts) != 2 {
		return time.Now().Format("02/01/2006 15:04:05")
	}
	datePart, timePart := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	for _, dLayout := range combineDateLayouts {
		d, err := time.Parse(dLayout, datePart)
		if err != nil {
			continue
		}
		for _, tLayout := range combineTimeLayouts {
			tm, err := time.Parse(tLayout, timePart)
			if err != nil {
				continue
			}
			combined := time.Date(d.Year(), d.Month(), d.Day(), tm.Hour(), tm.Minute(), tm.Second(), 0, time.Local)
			return combined.Format("02/01/2006 15:04:05")
		}
	}
	return time.Now().Format("02/01/2006 15:04:05")
}

// applySplit splits value on the first '+' and returns the trimmed
// before/after part, truncated to 10 characters, exactly as the
// original's apply_split(value, part).
func applySplit(value, part string) string {
	idx := strings.Index(value, "+")
	var result string
	if idx < 0 {
		result = value
	} else if part == "before" {
		result = value[:idx]
	} else {
		result = value[idx+1:]
	}
	result = strings.TrimSpace(result)
	if len(result) > 10 {
		result = result[:10]
	}
	return result
}
