package dateutil

import (
	"fmt"
	"strings"
	"time"
)

// KeyLayout is the canonical layout of a Date key (YYYY-MM-DD)
const KeyLayout = "2006-01-02"

// Date represents a calendar day without a time component
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate creates a normalized Date (2023-02-29 becomes 2023-03-01)
func NewDate(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the calendar day of t in t's location
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns the Date at 00:00 UTC
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d == Date{}
}

// String returns the canonical YYYY-MM-DD key
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Format renders the date with a Go time layout
func (d Date) Format(layout string) string {
	if layout == "" {
		layout = KeyLayout
	}
	return d.Time().Format(layout)
}

// AddDays returns the date n calendar days later (n may be negative)
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// AddWeekdays returns the date n Monday-Friday days later.
// A start on a weekend counts from the preceding Friday, so Saturday + 1 is Monday.
func (d Date) AddWeekdays(n int) Date {
	if n <= 0 {
		return d
	}

	// Move back to Friday so the remaining arithmetic starts on a weekday
	switch d.Weekday() {
	case time.Saturday:
		d = d.AddDays(-1)
	case time.Sunday:
		d = d.AddDays(-2)
	}

	weeks := n / 5
	rest := n % 5
	result := d.AddDays(weeks * 7)

	for rest > 0 {
		result = result.AddDays(1)
		if !result.IsWeekend() {
			rest--
		}
	}

	return result
}

// Weekday returns the day of week
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// IsWeekend returns true if the date is Saturday or Sunday
func (d Date) IsWeekend() bool {
	return IsWeekend(d.Time())
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

// Before reports whether d is strictly before other
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// After reports whether d is strictly after other
func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// Equal reports whether both dates are the same day
func (d Date) Equal(other Date) bool {
	return d == other
}

// MarshalText implements encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the number of calendar days from a to b
func DaysBetween(a, b Date) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// IsWeekday returns true if the date is Monday-Friday
func IsWeekday(date time.Time) bool {
	weekday := date.Weekday()
	return weekday >= time.Monday && weekday <= time.Friday
}

// IsWeekend returns true if the date is Saturday or Sunday
func IsWeekend(date time.Time) bool {
	weekday := date.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// ParseDate parses a date string in the accepted input formats.
// Time components are discarded.
func ParseDate(dateStr string) (Date, error) {
	dateStr = strings.TrimSpace(dateStr)
	formats := []string{
		KeyLayout,
		"02.01.2006",
		"02/01/2006",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return FromTime(t), nil
		}
	}

	return Date{}, fmt.Errorf("unrecognized date %q", dateStr)
}

// MustParse is ParseDate for literals; it panics on error
func MustParse(dateStr string) Date {
	d, err := ParseDate(dateStr)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns today's date in the local timezone
func Today() Date {
	return FromTime(time.Now())
}
