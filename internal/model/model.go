package model

import (
	"encoding/json"
	"time"
)

// Layouts shared by every package that reads or writes schedule values.
const (
	DateLayout    = "2006-01-02"
	ClockLayout   = "15:04"
	InstantLayout = time.RFC3339
)

// invalidText is what an invalid Instant prints as. It matches what the
// web client shows for an unparseable date.
const invalidText = "Invalid date"

// Instant is a date and wall-clock time in a concrete local offset.
//
// The zero value is the invalid sentinel. Code that builds Instants from
// user input never fails; it hands back an invalid Instant instead, and
// callers check Valid before using the value.
type Instant struct {
	t     time.Time
	valid bool
}

// NewInstant wraps t. Seconds are kept, sub-second precision is dropped.
func NewInstant(t time.Time) Instant {
	return Instant{t: t.Truncate(time.Second), valid: true}
}

func (i Instant) Valid() bool { return i.valid }

// Time returns the underlying time; the zero time.Time when invalid.
func (i Instant) Time() time.Time { return i.t }

// Date returns the calendar date part, or "" when invalid.
func (i Instant) Date() string {
	if !i.valid {
		return ""
	}
	return i.t.Format(DateLayout)
}

// Clock returns the wall-clock part as HH:MM, or "" when invalid.
func (i Instant) Clock() string {
	if !i.valid {
		return ""
	}
	return i.t.Format(ClockLayout)
}

// String is the canonical serialisation (RFC 3339 with local offset).
func (i Instant) String() string {
	if !i.valid {
		return invalidText
	}
	return i.t.Format(InstantLayout)
}

// Equal reports whether both instants are valid and denote the same moment,
// or both are invalid.
func (i Instant) Equal(o Instant) bool {
	if i.valid != o.valid {
		return false
	}
	return !i.valid || i.t.Equal(o.t)
}

func (i Instant) Before(o Instant) bool { return i.t.Before(o.t) }

func (i Instant) After(o Instant) bool { return i.t.After(o.t) }

func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.valid {
		return []byte("null"), nil
	}
	return json.Marshal(i.String())
}

// UnmarshalJSON accepts an RFC 3339 string or null. Strings that do not
// parse produce the invalid Instant rather than an error.
func (i *Instant) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = Instant{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(InstantLayout, s)
	if err != nil {
		*i = Instant{}
		return nil
	}
	*i = NewInstant(t)
	return nil
}

// Occurrence is one concrete scheduled appointment.
type Occurrence struct {
	Start Instant `json:"start"`
	End   Instant `json:"end"`
}

// RecurrenceSpec is the participant's work-schedule request as entered in
// the scheduling form.
//
// Weekdays use ISO numbering (1 = Monday ... 7 = Sunday). An empty set means
// the weekday of StartDate. Duplicate weekdays are a caller error; the
// generator does not dedupe them.
type RecurrenceSpec struct {
	Repeat        bool   `json:"repeat"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	StartTime     string `json:"start_time" validate:"required,wallclock"`
	EndTime       string `json:"end_time" validate:"required,wallclock"`
	EndDate       string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	IntervalWeeks int    `json:"interval_weeks"`
	Weekdays      []int  `json:"weekdays" validate:"omitempty,unique,dive,min=1,max=7"`
}

// CheckIn is a recorded attendance at a worksite.
type CheckIn struct {
	Start       Instant `json:"start"`
	HoursWorked float64 `json:"hours_worked"`
}

// WeekBucket holds the hours attributed to one seven-day span
// [WeekStart, WeekEnd).
type WeekBucket struct {
	WeekStart Instant `json:"week_start"`
	WeekEnd   Instant `json:"week_end"`
	Hours     float64 `json:"hours"`
}
