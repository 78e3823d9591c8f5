package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyDateFastPath(t *testing.T) {
	require.Equal(t, "15/03/2024", Apply("20240315", "date"))
}

func TestApplyDateFallsBackToNowOnGarbage(t *testing.T) {
	result := Apply("not-a-date", "date")
	_, err := time.Parse("02/01/2006", result)
	require.NoError(t, err)
}

func TestApplyDateAcceptsEverySpecifiedLayout(t *testing.T) {
	require.Equal(t, "15/03/2024", Apply("15/03/2024", "date"))
	require.Equal(t, "15/03/2024", Apply("2024-03-15", "date"))
	require.Equal(t, "15/03/2024", Apply("15-03-2024", "date"))
	require.Equal(t, "15/03/2024", Apply("15.03.2024", "date"))
	require.Equal(t, "15/03/2024", Apply("15/03/24", "date"))
	require.Equal(t, "15/03/2024", Apply("15-03-24", "date"))
	require.Equal(t, "15/03/2024", Apply("15.03.24", "date"))
}

func TestApplyHeureBranches(t *testing.T) {
	require.Equal(t, "153045", Apply("20240315153045", "heure"))
	require.Equal(t, "153000", Apply("202403151530", "heure"))
	require.Equal(t, "153045", Apply("153045", "heure"))
	require.Equal(t, "153000", Apply("1530", "heure"))
	require.Equal(t, "000000", Apply("", "heure"))
}

func TestApplyDatetimeFastPath(t *testing.T) {
	require.Equal(t, "15/03/2024 15:30:45", Apply("20240315153045", "datetime"))
}

func TestApplyDatetimeAcceptsNonDigitLayouts(t *testing.T) {
	require.Equal(t, "15/03/2024 15:30:45", Apply("15/03/2024 15:30:45", "datetime"))
	require.Equal(t, "15/03/2024 15:30:00", Apply("15/03/2024 15:30", "datetime"))
	require.Equal(t, "15/03/2024 15:30:45", Apply("2024-03-15 15:30:45", "datetime"))
	require.Equal(t, "15/03/2024 15:30:00", Apply("2024-03-15 15:30", "datetime"))
	require.Equal(t, "15/03/2024 15:30:45", Apply("20240315 153045", "datetime"))
}

func TestApplyDecimalNormalizesComma(t *testing.T) {
	require.Equal(t, "12.50", Apply("12,50", "decimal"))
	require.Equal(t, "-3.2", Apply("-3,2kg", "decimal"))
}

func TestApplyTinyint(t *testing.T) {
	require.Equal(t, "2", Apply("2", "tinyint"))
	require.Equal(t, "1", Apply("0", "tinyint"))
	require.Equal(t, "1", Apply("notanumber", "tinyint"))
}

func TestApplyDatetimeCombine(t *testing.T) {
	result := Apply("20240315;153045", "datetime_combine")
	require.Equal(t, "15/03/2024 15:30:45", result)
}

func TestApplyDatetimeCombineAcceptsDotSeparatedTime(t *testing.T) {
	result := Apply("15/03/2024;15.30.45", "datetime_combine")
	require.Equal(t, "15/03/2024 15:30:45", result)
}

func TestApplyDatetimeCombineAcceptsDotSeparatedHourMinute(t *testing.T) {
	result := Apply("15/03/2024;15.30", "datetime_combine")
	require.Equal(t, "15/03/2024 15:30:00", result)
}

func TestApplySplitBeforeAndAfterPlus(t *testing.T) {
	require.Equal(t, "ABCDEFGHIJ", Apply("ABCDEFGHIJKL+XYZ", "split_before_plus"))
	require.Equal(t, "XYZ", Apply("ABCDEFGHIJKL+XYZ", "split_after_plus"))
}

func TestApplySplitNoPlusReturnsWholeValue(t *testing.T) {
	require.Equal(t, "ABC", Apply("ABC", "split_before_plus"))
}

func TestApplyUnknownTagPassesThrough(t *testing.T) {
	require.Equal(t, "raw-value", Apply("raw-value", "unknown_tag"))
	require.Equal(t, "raw-value", Apply("raw-value", ""))
}
