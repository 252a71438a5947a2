package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date form used in storage and on the command line.
const DateLayout = "2006-01-02"

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

type Urgency string

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day and location of t, keeping its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// Older records may carry a full timestamp.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysInMonth returns the number of days in the given month, month being 1-12.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsLastDayOfMonth reports whether d falls on the final day of its month.
func (d Date) IsLastDayOfMonth() bool {
	return d.Day() == DaysInMonth(d.Year(), d.Month())
}

// AddMonths moves d forward by the given number of months.
//
// A date on the last day of its month lands on the last day of the target
// month, so Jan 31 becomes Feb 29 in a leap year and Mar 31 one month later.
// Any other day is kept unless the target month is too short, in which case
// it is clamped to that month's last day. Month-end is judged from d itself
// on every call, so 2024-02-29 rolls to 2024-03-31 and then 2024-04-30.
func AddMonths(d Date, months int) Date {
	day := d.Day()
	lastOfInput := DaysInMonth(d.Year(), d.Month())

	// Month arithmetic on the first of the month never overflows.
	first := time.Date(d.Year(), time.Month(d.Month())+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	year, month := first.Year(), int(first.Month())
	lastOfTarget := DaysInMonth(year, month)

	switch {
	case day == lastOfInput:
		day = lastOfTarget
	case day > lastOfTarget:
		day = lastOfTarget
	}
	return NewDate(year, month, day)
}

// DaysUntilDue returns the number of days from today until due. Overdue
// payments yield a negative count.
func DaysUntilDue(due, today Date) int {
	return int(due.Sub(today.Time).Hours() / 24)
}

// UrgencyFor classifies a days-until-due count.
func UrgencyFor(daysUntil int) Urgency {
	switch {
	case daysUntil <= 0:
		return UrgencyHigh
	case daysUntil <= 3:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// DueLabel renders a days-until-due count the way payment lists show it.
func DueLabel(daysUntil int) string {
	switch {
	case daysUntil < 0:
		return fmt.Sprintf("%d days overdue", -daysUntil)
	case daysUntil == 0:
		return "Due today"
	case daysUntil == 1:
		return "Due tomorrow"
	default:
		return fmt.Sprintf("Due in %d days", daysUntil)
	}
}
