// Package hours turns check-in history into calendar-week totals and
// compares them with the weekly hours a participant is required to work.
package hours

import (
	"sort"
	"time"

	"worksched/internal/model"
	"worksched/internal/wallclock"
)

// Aggregate buckets check-ins into consecutive seven-day weeks, from the
// week of the earliest check-in through the week of the latest, and sums
// HoursWorked per week.
//
// A check-in counts toward a week only when it falls strictly inside it
// (WeekStart < Start < WeekEnd). One that lands exactly on a week boundary,
// e.g. Monday 00:00 with Monday-first weeks, is left out of every bucket.
// Check-ins with an invalid Start are ignored.
//
// Weeks are calendar weeks in the zone of the earliest check-in. Use
// AggregateIn when check-ins may carry different offsets.
func Aggregate(checkIns []model.CheckIn, weekStart time.Weekday) []model.WeekBucket {
	buckets, _ := aggregate(checkIns, weekStart, nil)
	return buckets
}

// AggregateIn is Aggregate with weeks taken as calendar weeks in loc. Every
// check-in is converted to loc before it is placed, so a DST change between
// check-ins does not shift week boundaries.
func AggregateIn(checkIns []model.CheckIn, weekStart time.Weekday, loc *time.Location) []model.WeekBucket {
	buckets, _ := aggregate(checkIns, weekStart, loc)
	return buckets
}

// aggregate also returns the hours that no bucket took. A nil loc means
// the zone of the earliest check-in.
func aggregate(checkIns []model.CheckIn, weekStart time.Weekday, loc *time.Location) ([]model.WeekBucket, float64) {
	valid := make([]model.CheckIn, 0, len(checkIns))
	for _, c := range checkIns {
		if c.Start.Valid() {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil, 0
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Start.Before(valid[j].Start)
	})

	if loc == nil {
		loc = valid[0].Start.Time().Location()
	}
	first := wallclock.StartOfWeek(valid[0].Start.Time().In(loc), weekStart)
	last := wallclock.StartOfWeek(valid[len(valid)-1].Start.Time().In(loc), weekStart)

	n := wallclock.WeeksBetween(first, last) + 1
	buckets := make([]model.WeekBucket, n)
	ws := first
	for i := range buckets {
		we := ws.AddDate(0, 0, 7)
		buckets[i] = model.WeekBucket{
			WeekStart: model.NewInstant(ws),
			WeekEnd:   model.NewInstant(we),
		}
		ws = we
	}

	var unattributed float64
	for _, c := range valid {
		t := c.Start.Time().In(loc)
		i := wallclock.WeeksBetween(first, wallclock.StartOfWeek(t, weekStart))
		if i < 0 || i >= n || !strictlyInside(buckets[i], t) {
			unattributed += c.HoursWorked
			continue
		}
		buckets[i].Hours += c.HoursWorked
	}
	return buckets, unattributed
}

func strictlyInside(b model.WeekBucket, t time.Time) bool {
	return b.WeekStart.Time().Before(t) && t.Before(b.WeekEnd.Time())
}
