// Package timeutil provides UTC time helpers for the insight hub.
// All stored timestamps are UTC; day arithmetic here backs inactivity
// tracking and synthetic data generation.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in UTC.
func StartOfWeek(t time.Time) time.Time {
	t = StartOfDay(t)
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return t.AddDate(0, 0, -(weekday - 1))
}

// DaysSince calculates the number of whole days since the given time.
// Returns 0 for times in the future.
func DaysSince(t time.Time) int {
	return DaysBetween(t, Now())
}

// DaysBetween calculates the number of whole days from a to b at day
// granularity. Returns 0 when b precedes a.
func DaysBetween(a, b time.Time) int {
	days := int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DaysAgo returns the start of the day N days before now.
func DaysAgo(days int) time.Time {
	return StartOfDay(Now()).AddDate(0, 0, -days)
}

// FormatDate formats a time as a date string (YYYY-MM-DD) in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// FormatRelative returns a human-readable relative time string.
func FormatRelative(t time.Time) string {
	d := Now().Sub(t.UTC())

	switch {
	case d < 0:
		return "in the future"
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return FormatDate(t)
	}
}
