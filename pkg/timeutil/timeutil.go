// Package timeutil provides timezone-aware calendar helpers for ranking windows.
// Every function takes the location explicitly: leaderboard windows and streaks
// are cut at local midnight of the community, not at UTC midnight.
package timeutil

import (
	"fmt"
	"time"
)

// DefaultTimezone is the community timezone used when nothing is configured.
const DefaultTimezone = "Africa/Addis_Ababa"

// LoadLocation resolves an IANA timezone name. An empty name means
// DefaultTimezone; an unknown name falls back to a fixed UTC+3 zone so that
// window math keeps working on hosts without tzdata.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, 3*60*60), fmt.Errorf("timeutil: load %q: %w", name, err)
	}
	return loc, nil
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// StartOfWeek returns Monday 00:00 of the week containing t.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	weekday := int(l.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return StartOfDay(l.AddDate(0, 0, -(weekday - 1)), loc)
}

// StartOfMonth returns the first day of the month containing t.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), 1, 0, 0, 0, 0, loc)
}

// StartOfQuarter returns the first day of the calendar quarter containing t.
func StartOfQuarter(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	month := ((int(l.Month())-1)/3)*3 + 1
	return time.Date(l.Year(), time.Month(month), 1, 0, 0, 0, 0, loc)
}

// Quarter returns 1..4 for the calendar quarter containing t.
func Quarter(t time.Time, loc *time.Location) int {
	return (int(t.In(loc).Month())-1)/3 + 1
}

// IsSameDay reports whether both instants fall on the same local day.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	return StartOfDay(t1, loc).Equal(StartOfDay(t2, loc))
}

// DaysBetween returns the number of local calendar days from t1 to t2.
// The result is negative when t2 is before t1.
func DaysBetween(t1, t2 time.Time, loc *time.Location) int {
	d1 := StartOfDay(t1, loc)
	d2 := StartOfDay(t2, loc)
	// Dates are compared through UTC to avoid DST-length days.
	u1 := time.Date(d1.Year(), d1.Month(), d1.Day(), 0, 0, 0, 0, time.UTC)
	u2 := time.Date(d2.Year(), d2.Month(), d2.Day(), 0, 0, 0, 0, time.UTC)
	return int(u2.Sub(u1).Hours() / 24)
}

// IsConsecutiveDay reports whether t2 is the local day right after t1.
func IsConsecutiveDay(t1, t2 time.Time, loc *time.Location) bool {
	return DaysBetween(t1, t2, loc) == 1
}

// FormatDate formats t as YYYY-MM-DD in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
