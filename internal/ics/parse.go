package ics

import (
	"bytes"
	"errors"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "worksched/internal/log"
	"worksched/internal/model"
)

// ParseCheckIns reads an attendance export (one VEVENT per check-in) and
// returns the check-ins it describes. HoursWorked is DTEND minus DTSTART;
// events without a usable DTSTART/DTEND are logged and skipped, and an
// event whose end precedes its start counts as zero hours.
//
// Start times are converted to loc (time.Local when nil).
func ParseCheckIns(body []byte, loc *time.Location) ([]model.CheckIn, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	out := make([]model.CheckIn, 0)
	for _, ve := range cal.Events() {
		c, perr := parseVEvent(ve, loc)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Warn("ics vevent skipped", "uid", uidOf(ve), "reason", perr.Error())
			continue
		}
		out = append(out, c)
	}

	appLog.Debug("ics parse completed", "check_ins", len(out))
	return out, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.CheckIn, error) {
	if ve.GetProperty(ical.ComponentPropertyDtStart) == nil {
		return model.CheckIn{}, errors.New("missing DTSTART")
	}
	if ve.GetProperty(ical.ComponentPropertyDtEnd) == nil {
		return model.CheckIn{}, errors.New("missing DTEND")
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return model.CheckIn{}, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return model.CheckIn{}, err
	}

	h := end.Sub(start).Hours()
	if h < 0 {
		h = 0
	}
	return model.CheckIn{
		Start:       model.NewInstant(start.In(loc)),
		HoursWorked: h,
	}, nil
}

func uidOf(ve *ical.VEvent) string {
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		return p.Value
	}
	return ""
}
