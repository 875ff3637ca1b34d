package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2025-06")
	require.NoError(t, err)
	require.Equal(t, 2025, m.Year)
	require.Equal(t, time.June, m.Month)
	require.Equal(t, "2025-06", m.String())

	for _, bad := range []string{"", "2025-6", "2025/06", "juin 2025", "2025-13", "2025-00", "2025-06-01"} {
		_, err := ParseMonth(bad)
		require.ErrorIs(t, err, ErrInvalidMonth, "input %q", bad)
	}
}

func TestMonthWindow(t *testing.T) {
	m, err := ParseMonth("2025-02")
	require.NoError(t, err)

	require.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), m.Start())
	require.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 999999999, time.UTC), m.End())

	dec, err := ParseMonth("2025-12")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 12, 31, 23, 59, 59, 999999999, time.UTC), dec.End())
}
