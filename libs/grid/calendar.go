package grid

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the canonical local calendar date format used by cell keys.
const DateLayout = "2006-01-02"

// ParseLocalDate parses a "YYYY-MM-DD" string into a UTC-midnight time.
// Calendar arithmetic is done on this value with AddDate so month, year and
// leap-day boundaries are handled by calendar fields, never by epoch math.
func ParseLocalDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func FormatLocalDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays shifts a date by n calendar days (n may be negative).
func AddDays(date string, n int) (string, error) {
	t, err := ParseLocalDate(date)
	if err != nil {
		return "", err
	}
	return FormatLocalDate(t.AddDate(0, 0, n)), nil
}

// DayOfWeek returns 0 (Sunday) through 6 (Saturday).
func DayOfWeek(date string) (int, error) {
	t, err := ParseLocalDate(date)
	if err != nil {
		return 0, err
	}
	return int(t.Weekday()), nil
}

// FirstSunday rounds date down to the Sunday starting its week.
func FirstSunday(date string) (string, error) {
	dow, err := DayOfWeek(date)
	if err != nil {
		return "", err
	}
	return AddDays(date, -dow)
}

// LastSaturday rounds date up to the Saturday ending its week.
func LastSaturday(date string) (string, error) {
	dow, err := DayOfWeek(date)
	if err != nil {
		return "", err
	}
	return AddDays(date, 6-dow)
}

// DiffDays returns b - a in whole calendar days (negative when b is earlier).
func DiffDays(a, b string) (int, error) {
	ta, err := ParseLocalDate(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseLocalDate(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta) / (24 * time.Hour)), nil
}

// FormatHour renders a whole hour as a 12-hour label ("9 AM", "12 PM").
// Hours outside [0,24) wrap, so 24 renders as "12 AM".
func FormatHour(h int) string {
	h = ((h % 24) + 24) % 24
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d %s", display, suffix)
}

// FormatMinimalTime renders a fractional hour as a 12-hour label, showing
// minutes only when non-zero ("9 AM", "9:30 AM"). Input is rounded to the
// nearest minute and wrapped into [0,24).
func FormatMinimalTime(hours float64) string {
	total := int(math.Round(hours * 60))
	total = ((total % 1440) + 1440) % 1440
	h, m := total/60, total%60
	if m == 0 {
		return FormatHour(h)
	}
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, m, suffix)
}

// TimezoneOffsetString renders the UTC offset of t's location as "GMT±HH:MM".
func TimezoneOffsetString(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("GMT%s%02d:%02d", sign, offset/3600, (offset%3600)/60)
}
