// Package schedule connects the recurrence generator and the hours
// aggregator to the graph backend: it turns a participant's recurrence
// request into appointment entities, and their check-in entities into a
// weekly compliance report.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"worksched/internal/graph"
	"worksched/internal/hours"
	appLog "worksched/internal/log"
	"worksched/internal/model"
	"worksched/internal/recur"
)

// Entity and association types used in the backend graph.
const (
	TypeParticipant = "participant"
	TypeAppointment = "appointment"
	TypeCheckIn     = "check_in"

	AssocScheduled = "scheduled"
)

// Property keys on appointment and check-in entities.
const (
	PropStart         = "start"
	PropEnd           = "end"
	PropHoursWorked   = "hours_worked"
	PropParticipantID = "participant_id"
)

var (
	ErrInvalidSchedule    = errors.New("schedule: invalid schedule")
	ErrMissingParticipant = errors.New("schedule: participant id is required")
)

// Options configures a Service.
type Options struct {
	Location            *time.Location
	WeekStart           time.Weekday
	MaxWeeks            int
	RequiredWeeklyHours float64
}

// Service is safe for concurrent use as long as the backend Client is.
type Service struct {
	backend graph.Client
	opts    Options
}

func NewService(backend graph.Client, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxWeeks <= 0 {
		opts.MaxWeeks = recur.DefaultMaxWeeks
	}
	return &Service{backend: backend, opts: opts}
}

// RecurOptions are the generator options derived from the service config.
func (s *Service) RecurOptions() recur.Options {
	return recur.Options{
		Location:  s.opts.Location,
		WeekStart: s.opts.WeekStart,
		MaxWeeks:  s.opts.MaxWeeks,
	}
}

// WeekStart is the first day of a reporting week.
func (s *Service) WeekStart() time.Weekday { return s.opts.WeekStart }

// RequiredWeeklyHours is the default weekly target.
func (s *Service) RequiredWeeklyHours() float64 { return s.opts.RequiredWeeklyHours }

// Location is the zone schedule input is read in.
func (s *Service) Location() *time.Location { return s.opts.Location }

// CreateWorkSchedule validates spec, expands it, and stores one appointment
// per occurrence linked to the participant, all in a single batch.
func (s *Service) CreateWorkSchedule(ctx context.Context, participantID string, spec model.RecurrenceSpec) (recur.Result, error) {
	if participantID == "" {
		return recur.Result{}, ErrMissingParticipant
	}
	if err := recur.Validate(spec, s.opts.MaxWeeks); err != nil {
		return recur.Result{}, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	res := recur.Generate(spec, s.RecurOptions())
	if len(res.Occurrences) == 0 {
		appLog.Info("schedule: nothing to create",
			"participant", participantID,
			"start_date", spec.StartDate,
			"end_date", spec.EndDate,
		)
		return res, nil
	}

	batch := graph.Batch{
		Entities:     make([]graph.Entity, 0, len(res.Occurrences)),
		Associations: make([]graph.Association, 0, len(res.Occurrences)),
	}
	for _, occ := range res.Occurrences {
		id := uuid.NewString()
		batch.Entities = append(batch.Entities, graph.Entity{
			ID:   id,
			Type: TypeAppointment,
			Properties: map[string]any{
				PropStart:         occ.Start.String(),
				PropEnd:           occ.End.String(),
				PropParticipantID: participantID,
			},
		})
		batch.Associations = append(batch.Associations, graph.Association{
			Type: AssocScheduled,
			Src:  participantID,
			Dst:  id,
		})
	}

	if err := s.backend.SubmitBatch(ctx, batch); err != nil {
		return recur.Result{}, fmt.Errorf("schedule: submit appointments: %w", err)
	}

	appLog.Info("schedule: appointments created",
		"participant", participantID,
		"algorithm", res.Algorithm,
		"count", len(res.Occurrences),
		"truncated", res.Truncated,
	)
	return res, nil
}

// Appointments returns the participant's stored appointments in
// chronological order. Entities that do not decode are skipped.
func (s *Service) Appointments(ctx context.Context, participantID string) ([]model.Occurrence, error) {
	entities, err := s.neighbors(ctx, participantID, TypeAppointment)
	if err != nil {
		return nil, err
	}

	out := make([]model.Occurrence, 0, len(entities))
	for _, e := range entities {
		occ, ok := occurrenceFromEntity(e)
		if !ok {
			appLog.Warn("schedule: skipping malformed appointment", "id", e.ID)
			continue
		}
		out = append(out, occ)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// CheckIns returns the participant's recorded check-ins. Entities that do
// not decode are skipped.
func (s *Service) CheckIns(ctx context.Context, participantID string) ([]model.CheckIn, error) {
	entities, err := s.neighbors(ctx, participantID, TypeCheckIn)
	if err != nil {
		return nil, err
	}

	out := make([]model.CheckIn, 0, len(entities))
	for _, e := range entities {
		c, ok := checkInFromEntity(e, s.opts.Location)
		if !ok {
			appLog.Warn("schedule: skipping malformed check-in", "id", e.ID)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// WeeklyReport compares the participant's weekly hours with the configured
// requirement.
func (s *Service) WeeklyReport(ctx context.Context, participantID string) (hours.Report, error) {
	checkIns, err := s.CheckIns(ctx, participantID)
	if err != nil {
		return hours.Report{}, err
	}
	return hours.BuildReport(checkIns, s.opts.WeekStart, s.opts.Location, s.opts.RequiredWeeklyHours), nil
}

// ParticipantReport pairs a participant with their compliance report.
type ParticipantReport struct {
	ParticipantID string       `json:"participant_id"`
	Report        hours.Report `json:"report"`
}

// SweepCompliance builds a report for every participant of the program and
// logs the ones that are short. Failures for individual participants are
// logged and joined into the returned error; the other reports are still
// returned.
func (s *Service) SweepCompliance(ctx context.Context, programID string) ([]ParticipantReport, error) {
	participants, err := s.neighbors(ctx, programID, TypeParticipant)
	if err != nil {
		return nil, err
	}

	reports := make([]ParticipantReport, 0, len(participants))
	var errs []error
	for _, p := range participants {
		r, err := s.WeeklyReport(ctx, p.ID)
		if err != nil {
			appLog.Error("schedule: compliance report failed", err, "participant", p.ID)
			errs = append(errs, fmt.Errorf("participant %s: %w", p.ID, err))
			continue
		}
		if short := r.WeeksShort(); short > 0 {
			appLog.Warn("schedule: participant below required hours",
				"participant", p.ID,
				"weeks_short", short,
				"worked", r.WorkedTotal,
				"required", r.RequiredTotal,
			)
		}
		reports = append(reports, ParticipantReport{ParticipantID: p.ID, Report: r})
	}

	appLog.Info("schedule: compliance sweep finished",
		"program", programID,
		"participants", len(participants),
		"failed", len(errs),
	)
	return reports, errors.Join(errs...)
}

func (s *Service) neighbors(ctx context.Context, entityID, entityType string) ([]graph.Entity, error) {
	if entityID == "" {
		return nil, ErrMissingParticipant
	}
	entities, err := s.backend.SearchNeighbors(ctx, entityID, entityType)
	if err != nil {
		return nil, fmt.Errorf("schedule: load %s for %s: %w", entityType, entityID, err)
	}
	return entities, nil
}
