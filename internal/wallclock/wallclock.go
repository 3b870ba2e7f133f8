// Package wallclock turns the date and time strings entered in scheduling
// forms into Instants and does the calendar-week arithmetic shared by the
// occurrence generator and the hours aggregator.
//
// Nothing here returns an error for bad input. Combine yields an invalid
// Instant and Duration yields zero; callers validate first when they need
// to tell the user what was wrong.
package wallclock

import (
	"strings"
	"time"

	"worksched/internal/model"
)

// referenceDate anchors Duration. Any date works; a UTC one keeps DST out
// of the subtraction.
const referenceDate = "2000-01-03"

var combinedLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

var clockLayouts = []string{
	model.ClockLayout,
	"15:04:05",
}

// Combine merges a calendar date ("2024-01-03") and a wall-clock time
// ("14:30") into an Instant in the process-local zone.
func Combine(date, clock string) model.Instant {
	return CombineIn(date, clock, time.Local)
}

// CombineIn is Combine with an explicit zone. A nil loc means time.Local.
func CombineIn(date, clock string, loc *time.Location) model.Instant {
	if loc == nil {
		loc = time.Local
	}
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return model.Instant{}
	}

	s := date + "T" + clock
	for _, layout := range combinedLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return model.NewInstant(t)
		}
	}
	return model.Instant{}
}

// ParseDate parses a "YYYY-MM-DD" date as local midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsClock reports whether s is an HH:MM or HH:MM:SS wall-clock time.
func IsClock(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// ParseInstantIn reads a check-in timestamp into loc (time.Local when
// nil). RFC 3339 values are converted from their own offset; values without
// an offset ("2024-01-03T09:00") are read as wall-clock time in loc.
func ParseInstantIn(s string, loc *time.Location) model.Instant {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(model.InstantLayout, s); err == nil {
		return model.NewInstant(t.In(loc))
	}
	date, clock, ok := strings.Cut(s, "T")
	if !ok {
		return model.Instant{}
	}
	return CombineIn(date, clock, loc)
}

// Duration returns the hours between two wall-clock times on the same day.
// A timeOut earlier than timeIn is treated as an entry mistake and yields
// 0, as does unparseable input.
func Duration(timeIn, timeOut string) float64 {
	in := CombineIn(referenceDate, timeIn, time.UTC)
	out := CombineIn(referenceDate, timeOut, time.UTC)
	if !in.Valid() || !out.Valid() {
		return 0
	}
	h := out.Time().Sub(in.Time()).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// ISOWeekday maps t's weekday to 1 (Monday) ... 7 (Sunday).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekdayFromISO is the inverse of ISOWeekday. ok is false outside 1..7.
func WeekdayFromISO(n int) (time.Weekday, bool) {
	if n < 1 || n > 7 {
		return 0, false
	}
	return time.Weekday(n % 7), true
}

// StartOfDay returns local midnight of t's calendar date.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the most recent weekStart on or before t,
// in t's location.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	shift := (int(t.Weekday()) - int(weekStart) + 7) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-shift, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a's date to b's date, ignoring the
// time of day and any DST shift in between.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// WeeksBetween is floor(DaysBetween(a, b) / 7).
func WeeksBetween(a, b time.Time) int {
	d := DaysBetween(a, b)
	if d < 0 {
		return -((-d + 6) / 7)
	}
	return d / 7
}
