package shared

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ErrInvalidMonth indicates a billing period outside the YYYY-MM format.
var ErrInvalidMonth = errors.New("invalid month, expected YYYY-MM")

// Month is a billing period. Invoices are keyed by (tenant, Month).
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth validates and parses a YYYY-MM period string.
func ParseMonth(s string) (Month, error) {
	if !monthPattern.MatchString(s) {
		return Month{}, ErrInvalidMonth
	}
	var year, month int
	if _, err := fmt.Sscanf(s, "%4d-%2d", &year, &month); err != nil {
		return Month{}, ErrInvalidMonth
	}
	if month < 1 || month > 12 {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// String renders the period back to YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start returns the first instant of the period (UTC).
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last instant of the period. Period windows are inclusive
// [Start, End] on both sides.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}
