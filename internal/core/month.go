package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is a calendar-month bucket key, rendered as zero-padded YYYY-MM.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf truncates t to its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a month key. The legacy unpadded form (2025-1) is
// accepted and yields the same Month as 2025-01.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	year, month, ok := strings.Cut(s, "-")
	if !ok || len(year) != 4 || len(month) < 1 || len(month) > 2 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: y, Month: time.Month(m)}, nil
}

// NormalizeMonthKey rewrites a month key into its canonical YYYY-MM form.
func NormalizeMonthKey(s string) (string, error) {
	m, err := ParseMonth(s)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// FirstDay returns the first calendar day of the month.
func (m Month) FirstDay() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// AddMonths moves the key by n calendar months (n may be negative).
func (m Month) AddMonths(n int) Month {
	idx := m.Year*12 + int(m.Month) - 1 + n
	return Month{Year: idx / 12, Month: time.Month(idx%12 + 1)}
}

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Month) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMonth, string(b))
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
