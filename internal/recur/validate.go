package recur

import (
	"errors"
	"fmt"
	"time"

	"worksched/internal/model"
	"worksched/internal/validate"
	"worksched/internal/wallclock"
)

// Validation errors
var (
	ErrMissingEndDate    = errors.New("recur: end_date is required for a repeating schedule")
	ErrInvalidInterval   = errors.New("recur: interval_weeks must be at least 1 for a repeating schedule")
	ErrRecurrenceTooLong = errors.New("recur: recurrence exceeds the maximum length")
)

// Validate reports what is wrong with spec in terms a scheduler can act on.
// Field format problems come back as *validate.Error; the remaining checks
// return one of the sentinel errors above.
//
// An end date before the start date is not an error: Generate simply
// produces no occurrences for it.
func Validate(spec model.RecurrenceSpec, maxWeeks int) error {
	if err := validate.Struct(spec); err != nil {
		return err
	}
	if !spec.Repeat {
		return nil
	}
	if spec.EndDate == "" {
		return ErrMissingEndDate
	}
	if spec.IntervalWeeks < 1 {
		return ErrInvalidInterval
	}
	if maxWeeks <= 0 {
		maxWeeks = DefaultMaxWeeks
	}

	// Formats were checked above, so both parse.
	first, _ := wallclock.ParseDate(spec.StartDate, time.UTC)
	last, _ := wallclock.ParseDate(spec.EndDate, time.UTC)
	if last.After(capDay(first, maxWeeks)) {
		return fmt.Errorf("%w: %d weeks requested, at most %d allowed",
			ErrRecurrenceTooLong, wallclock.WeeksBetween(first, last), maxWeeks)
	}
	return nil
}
