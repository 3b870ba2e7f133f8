package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"worksched/internal/model"
)

const productID = "-//worksched//work schedule//EN"

// ExportOptions describes the calendar produced by Export.
type ExportOptions struct {
	// Name is shown by calendar clients (X-WR-CALNAME).
	Name string
	// UIDPrefix scopes event UIDs, typically the participant ID.
	UIDPrefix string
	// Summary and Location are copied onto every event.
	Summary  string
	Location string
	// Stamp is written as DTSTAMP. If zero, the current time is used.
	Stamp time.Time
}

// Export renders occurrences as an iCalendar document. Occurrences with an
// invalid start or end are left out.
func Export(occurrences []model.Occurrence, opts ExportOptions) string {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetName(opts.Name)
	}

	for _, occ := range occurrences {
		if !occ.Start.Valid() || !occ.End.Valid() {
			continue
		}
		ev := cal.AddEvent(instanceKey(opts.UIDPrefix, occ))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(occ.Start.Time())
		ev.SetEndAt(occ.End.Time())
		if opts.Summary != "" {
			ev.SetSummary(opts.Summary)
		}
		if opts.Location != "" {
			ev.SetLocation(opts.Location)
		}
	}

	return cal.Serialize()
}

// instanceKey derives a stable per-occurrence UID from its start time.
func instanceKey(prefix string, occ model.Occurrence) string {
	key := occ.Start.Time().UTC().Format("20060102T150405Z")
	if prefix == "" {
		return key + "@worksched"
	}
	return prefix + "-" + key + "@worksched"
}
