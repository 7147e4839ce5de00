package grid

import (
	"testing"
	"time"
)

func TestAddDays_Boundaries(t *testing.T) {
	cases := []struct {
		date string
		n    int
		want string
	}{
		{"2025-12-08", 1, "2025-12-09"},
		{"2025-12-31", 1, "2026-01-01"},
		{"2024-02-28", 1, "2024-02-29"}, // leap year
		{"2025-02-28", 1, "2025-03-01"},
		{"2025-01-01", -1, "2024-12-31"},
		{"2025-12-08", 0, "2025-12-08"},
	}
	for _, c := range cases {
		got, err := AddDays(c.date, c.n)
		if err != nil {
			t.Fatalf("AddDays(%s, %d): %v", c.date, c.n, err)
		}
		if got != c.want {
			t.Errorf("AddDays(%s, %d) = %s, want %s", c.date, c.n, got, c.want)
		}
	}
}

func TestParseFormat_Inverses(t *testing.T) {
	for _, s := range []string{"2025-12-08", "2024-02-29", "1999-01-01"} {
		parsed, err := ParseLocalDate(s)
		if err != nil {
			t.Fatalf("ParseLocalDate(%s): %v", s, err)
		}
		if got := FormatLocalDate(parsed); got != s {
			t.Errorf("round trip of %s gave %s", s, got)
		}
	}
	if _, err := ParseLocalDate("12/08/2025"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestWeekRounding(t *testing.T) {
	// 2025-12-08 is a Monday.
	dow, err := DayOfWeek("2025-12-08")
	if err != nil || dow != 1 {
		t.Fatalf("DayOfWeek = %d, %v; want 1", dow, err)
	}
	sunday, err := FirstSunday("2025-12-08")
	if err != nil || sunday != "2025-12-07" {
		t.Fatalf("FirstSunday = %s, %v; want 2025-12-07", sunday, err)
	}
	saturday, err := LastSaturday("2025-12-08")
	if err != nil || saturday != "2025-12-13" {
		t.Fatalf("LastSaturday = %s, %v; want 2025-12-13", saturday, err)
	}

	// A Sunday rounds to itself on the left, a Saturday on the right.
	if s, _ := FirstSunday("2025-12-07"); s != "2025-12-07" {
		t.Errorf("FirstSunday(sunday) = %s", s)
	}
	if s, _ := LastSaturday("2025-12-13"); s != "2025-12-13" {
		t.Errorf("LastSaturday(saturday) = %s", s)
	}
}

func TestDiffDays(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2025-12-08", "2025-12-08", 0},
		{"2025-12-08", "2025-12-15", 7},
		{"2025-12-15", "2025-12-08", -7},
		{"2024-02-01", "2024-03-01", 29}, // leap February
	}
	for _, c := range cases {
		got, err := DiffDays(c.a, c.b)
		if err != nil {
			t.Fatalf("DiffDays(%s, %s): %v", c.a, c.b, err)
		}
		if got != c.want {
			t.Errorf("DiffDays(%s, %s) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestFormatHour(t *testing.T) {
	cases := []struct {
		h    int
		want string
	}{
		{0, "12 AM"},
		{9, "9 AM"},
		{12, "12 PM"},
		{15, "3 PM"},
		{23, "11 PM"},
		{24, "12 AM"},
	}
	for _, c := range cases {
		if got := FormatHour(c.h); got != c.want {
			t.Errorf("FormatHour(%d) = %q, want %q", c.h, got, c.want)
		}
	}
}

func TestFormatMinimalTime(t *testing.T) {
	cases := []struct {
		hours float64
		want  string
	}{
		{9, "9 AM"},
		{9.5, "9:30 AM"},
		{0, "12 AM"},
		{12.25, "12:15 PM"},
		{23.999, "12 AM"},  // rounds up to midnight and wraps
		{25.5, "1:30 AM"},  // wraps past a day
		{-0.5, "11:30 PM"}, // negative wraps backwards
	}
	for _, c := range cases {
		if got := FormatMinimalTime(c.hours); got != c.want {
			t.Errorf("FormatMinimalTime(%v) = %q, want %q", c.hours, got, c.want)
		}
	}
}

func TestTimezoneOffsetString(t *testing.T) {
	cases := []struct {
		offsetSeconds int
		want          string
	}{
		{9 * 3600, "GMT+09:00"},
		{-5 * 3600, "GMT-05:00"},
		{5*3600 + 30*60, "GMT+05:30"},
		{0, "GMT+00:00"},
	}
	for _, c := range cases {
		loc := time.FixedZone("test", c.offsetSeconds)
		at := time.Date(2025, 12, 8, 12, 0, 0, 0, loc)
		if got := TimezoneOffsetString(at); got != c.want {
			t.Errorf("offset %ds = %q, want %q", c.offsetSeconds, got, c.want)
		}
	}
}
