package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"

	// MinutesPerDay is the exclusive upper bound for a session end.
	MinutesPerDay = 24 * 60
)

// Date is a calendar day with no time zone attached. It is only used as
// a key for grouping sessions.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes the given components into a Date.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, NewValidationError("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", s), ErrInvalidDate)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// IsZero reports whether the date was never set.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clock is a wall-clock time expressed in minutes after midnight.
type Clock int

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses "H:MM" or "HH:MM". "24:00" is accepted as the end of day.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(mm) != 2 {
		return 0, NewValidationError("time", fmt.Sprintf("%q is not an HH:MM time", s), ErrInvalidClock)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, NewValidationError("time", fmt.Sprintf("%q has a bad hour", s), ErrInvalidClock)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, NewValidationError("time", fmt.Sprintf("%q has a bad minute", s), ErrInvalidClock)
	}
	c := NewClock(hour, minute)
	if hour < 0 || c > MinutesPerDay {
		return 0, NewValidationError("time", fmt.Sprintf("%q is outside the day", s), ErrInvalidClock)
	}
	return c, nil
}

// MustParseClock is ParseClock for static configuration; it panics on error.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// Add returns the clock shifted by the given number of minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On anchors the clock to a day, in UTC.
func (c Clock) On(d Date) time.Time {
	return d.Time().Add(time.Duration(c) * time.Minute)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DateRange is an inclusive range of days.
type DateRange struct {
	From Date
	To   Date
}

// SingleDay returns a range covering only d.
func SingleDay(d Date) DateRange {
	return DateRange{From: d, To: d}
}

// NewDateRange validates that from is not after to.
func NewDateRange(from, to Date) (DateRange, error) {
	if to.Before(from) {
		return DateRange{}, NewValidationError("to", "range ends before it starts", ErrInvalidDate)
	}
	return DateRange{From: from, To: to}, nil
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !r.To.Before(d)
}
