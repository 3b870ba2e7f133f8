package recur

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "worksched/internal/log"
	"worksched/internal/model"
	"worksched/internal/wallclock"
)

const (
	// DefaultMaxWeeks bounds how far a single recurrence may reach (ten years).
	DefaultMaxWeeks = 520
)

// Options controls how a RecurrenceSpec is expanded.
type Options struct {
	// Location is the zone dates and times are read in. If nil, time.Local
	// is used.
	Location *time.Location

	// WeekStart is the first day of a week when stepping multi-weekday
	// schedules every N weeks. The zero value is Sunday; DefaultOptions
	// uses Monday.
	WeekStart time.Weekday

	// MaxWeeks caps the expansion window. If zero, DefaultMaxWeeks is used.
	MaxWeeks int
}

// DefaultOptions returns local-zone, Monday-first options with the default cap.
func DefaultOptions() Options {
	return Options{
		Location:  time.Local,
		WeekStart: time.Monday,
		MaxWeeks:  DefaultMaxWeeks,
	}
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) maxWeeks() int {
	if o.MaxWeeks <= 0 {
		return DefaultMaxWeeks
	}
	return o.MaxWeeks
}

// Algorithm names the expansion strategy picked for a RecurrenceSpec.
type Algorithm string

const (
	AlgorithmSingle       Algorithm = "single"
	AlgorithmUniform      Algorithm = "uniform_weekly"
	AlgorithmMultiWeekday Algorithm = "multi_weekday"
)

// Result wraps the expanded occurrences.
type Result struct {
	Algorithm   Algorithm          `json:"algorithm"`
	Occurrences []model.Occurrence `json:"occurrences"`
	// Truncated is set when the window was longer than Options.MaxWeeks and
	// only the first MaxWeeks weeks were expanded.
	Truncated bool `json:"truncated"`
}

// Generate expands spec into concrete occurrences.
//
//   - Repeat off: exactly one occurrence on StartDate.
//   - Weekdays empty or only StartDate's weekday: StartDate, then every
//     IntervalWeeks*7 days through EndDate (inclusive).
//   - Any other weekday set: every requested weekday in StartDate's week
//     and every IntervalWeeks-th week after it, limited to [StartDate, EndDate].
//
// Generate never fails. Malformed dates or times give an empty result
// (or, when not repeating, an occurrence of invalid Instants), and an
// EndDate before StartDate gives no occurrences. Run Validate first to get
// a reportable error.
func Generate(spec model.RecurrenceSpec, opts Options) Result {
	loc := opts.location()

	if !spec.Repeat {
		return Result{
			Algorithm: AlgorithmSingle,
			Occurrences: []model.Occurrence{{
				Start: wallclock.CombineIn(spec.StartDate, spec.StartTime, loc),
				End:   wallclock.CombineIn(spec.StartDate, spec.EndTime, loc),
			}},
		}
	}

	first := wallclock.CombineIn(spec.StartDate, spec.StartTime, loc)
	lastDay, ok := wallclock.ParseDate(spec.EndDate, loc)
	if !first.Valid() || !ok || !wallclock.IsClock(spec.EndTime) {
		return Result{Algorithm: selectAlgorithm(spec, first.Time())}
	}

	firstDay := wallclock.StartOfDay(first.Time())
	algo := selectAlgorithm(spec, firstDay)
	res := Result{Algorithm: algo}
	if lastDay.Before(firstDay) {
		return res
	}

	if limit := capDay(firstDay, opts.maxWeeks()); lastDay.After(limit) {
		appLog.Warn("recur: recurrence window capped",
			"start_date", spec.StartDate,
			"end_date", spec.EndDate,
			"max_weeks", opts.maxWeeks(),
		)
		lastDay = limit
		res.Truncated = true
	}

	interval := spec.IntervalWeeks
	if interval < 1 {
		interval = 1
	}

	ropt := rrule.ROption{
		Freq:     rrule.WEEKLY,
		Interval: interval,
		Dtstart:  first.Time(),
		Until:    time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day(), 23, 59, 59, 0, loc),
		Wkst:     rruleWeekday(opts.WeekStart),
	}
	if algo == AlgorithmMultiWeekday {
		ropt.Byweekday = rruleWeekdays(spec.Weekdays)
	}

	r, err := rrule.NewRRule(ropt)
	if err != nil {
		appLog.Error("recur: failed to build rule", err, "start_date", spec.StartDate, "interval", interval)
		return res
	}

	starts := r.All()
	res.Occurrences = make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		date := s.Format(model.DateLayout)
		res.Occurrences = append(res.Occurrences, model.Occurrence{
			Start: model.NewInstant(s),
			End:   wallclock.CombineIn(date, spec.EndTime, loc),
		})
	}
	sort.SliceStable(res.Occurrences, func(i, j int) bool {
		return res.Occurrences[i].Start.Before(res.Occurrences[j].Start)
	})

	appLog.Debug("recur: expanded",
		"algorithm", algo,
		"start_date", spec.StartDate,
		"end_date", spec.EndDate,
		"count", len(res.Occurrences),
	)
	return res
}

// selectAlgorithm picks the uniform repeat unless the weekday set names
// something other than the start date's own weekday.
func selectAlgorithm(spec model.RecurrenceSpec, start time.Time) Algorithm {
	if !spec.Repeat {
		return AlgorithmSingle
	}
	days := validWeekdays(spec.Weekdays)
	if len(days) == 0 {
		return AlgorithmUniform
	}
	if len(days) == 1 && !start.IsZero() && days[0] == wallclock.ISOWeekday(start) {
		return AlgorithmUniform
	}
	return AlgorithmMultiWeekday
}

// capDay is the last date a recurrence starting on firstDay may reach.
func capDay(firstDay time.Time, maxWeeks int) time.Time {
	return firstDay.AddDate(0, 0, maxWeeks*7)
}

func validWeekdays(days []int) []int {
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d >= 1 && d <= 7 {
			out = append(out, d)
		}
	}
	return out
}

var isoToRRule = [...]rrule.Weekday{
	1: rrule.MO,
	2: rrule.TU,
	3: rrule.WE,
	4: rrule.TH,
	5: rrule.FR,
	6: rrule.SA,
	7: rrule.SU,
}

func rruleWeekdays(days []int) []rrule.Weekday {
	valid := validWeekdays(days)
	out := make([]rrule.Weekday, 0, len(valid))
	for _, d := range valid {
		out = append(out, isoToRRule[d])
	}
	return out
}

func rruleWeekday(wd time.Weekday) rrule.Weekday {
	if wd == time.Sunday {
		return rrule.SU
	}
	return isoToRRule[int(wd)]
}
