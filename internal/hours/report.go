package hours

import (
	"time"

	"worksched/internal/model"
)

// WeekCompliance is one week of the required-versus-worked table.
type WeekCompliance struct {
	model.WeekBucket
	Required  float64 `json:"required"`
	Shortfall float64 `json:"shortfall"`
	Met       bool    `json:"met"`
}

// Report is the compliance view for one participant.
type Report struct {
	Weeks         []WeekCompliance `json:"weeks"`
	RequiredTotal float64          `json:"required_total"`
	WorkedTotal   float64          `json:"worked_total"`
	// Unattributed holds hours from check-ins that sat exactly on a week
	// boundary and so were not counted toward any week.
	Unattributed float64 `json:"unattributed"`
}

// WeeksShort counts the weeks that did not meet the requirement.
func (r Report) WeeksShort() int {
	n := 0
	for _, w := range r.Weeks {
		if !w.Met {
			n++
		}
	}
	return n
}

// BuildReport aggregates check-ins into calendar weeks in loc and compares
// every week against requiredPerWeek. A requirement of zero or less marks
// every week as met. A nil loc means the zone of the earliest check-in.
func BuildReport(checkIns []model.CheckIn, weekStart time.Weekday, loc *time.Location, requiredPerWeek float64) Report {
	if requiredPerWeek < 0 {
		requiredPerWeek = 0
	}
	buckets, unattributed := aggregate(checkIns, weekStart, loc)

	r := Report{
		Weeks:        make([]WeekCompliance, 0, len(buckets)),
		Unattributed: unattributed,
	}
	for _, b := range buckets {
		shortfall := requiredPerWeek - b.Hours
		if shortfall < 0 {
			shortfall = 0
		}
		r.Weeks = append(r.Weeks, WeekCompliance{
			WeekBucket: b,
			Required:   requiredPerWeek,
			Shortfall:  shortfall,
			Met:        b.Hours >= requiredPerWeek,
		})
		r.RequiredTotal += requiredPerWeek
		r.WorkedTotal += b.Hours
	}
	return r
}
