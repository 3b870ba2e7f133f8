package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksched/internal/graph"
	"worksched/internal/model"
	"worksched/internal/recur"
)

func newTestService(t *testing.T) (*Service, *graph.Memory) {
	t.Helper()
	mem := graph.NewMemory()
	require.NoError(t, mem.SubmitBatch(context.Background(), graph.Batch{
		Entities: []graph.Entity{
			{ID: "program-1", Type: "program"},
			{ID: "p-1", Type: TypeParticipant},
			{ID: "p-2", Type: TypeParticipant},
		},
		Associations: []graph.Association{
			{Type: "enrolled", Src: "p-1", Dst: "program-1"},
			{Type: "enrolled", Src: "p-2", Dst: "program-1"},
		},
	}))

	svc := NewService(mem, Options{
		Location:            time.UTC,
		WeekStart:           time.Monday,
		RequiredWeeklyHours: 8,
	})
	return svc, mem
}

type checkInRow struct {
	id    string
	start any
	hours any
}

func addCheckIns(t *testing.T, mem *graph.Memory, participantID string, rows ...checkInRow) {
	t.Helper()
	var b graph.Batch
	for _, r := range rows {
		b.Entities = append(b.Entities, graph.Entity{
			ID:   r.id,
			Type: TypeCheckIn,
			Properties: map[string]any{
				PropStart:       r.start,
				PropHoursWorked: r.hours,
			},
		})
		b.Associations = append(b.Associations, graph.Association{Type: "attended", Src: r.id, Dst: participantID})
	}
	require.NoError(t, mem.SubmitBatch(context.Background(), b))
}

func weeklySpec() model.RecurrenceSpec {
	return model.RecurrenceSpec{
		Repeat:        true,
		StartDate:     "2024-01-03",
		StartTime:     "09:00",
		EndTime:       "13:00",
		EndDate:       "2024-01-14",
		IntervalWeeks: 1,
		Weekdays:      []int{1, 3, 5},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateWorkSchedule / Appointments
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateWorkSchedule_StoresAppointments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.CreateWorkSchedule(ctx, "p-1", weeklySpec())
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 5)

	stored, err := svc.Appointments(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, stored, 5)
	for i, occ := range stored {
		assert.True(t, occ.Start.Equal(res.Occurrences[i].Start))
		assert.True(t, occ.End.Equal(res.Occurrences[i].End))
	}
}

func TestCreateWorkSchedule_InvalidSpec(t *testing.T) {
	svc, _ := newTestService(t)
	spec := weeklySpec()
	spec.IntervalWeeks = 0

	_, err := svc.CreateWorkSchedule(context.Background(), "p-1", spec)

	assert.ErrorIs(t, err, ErrInvalidSchedule)
	assert.ErrorIs(t, err, recur.ErrInvalidInterval)
}

func TestCreateWorkSchedule_TooLong(t *testing.T) {
	svc, _ := newTestService(t)
	spec := weeklySpec()
	spec.EndDate = "2040-01-01"

	_, err := svc.CreateWorkSchedule(context.Background(), "p-1", spec)

	assert.ErrorIs(t, err, recur.ErrRecurrenceTooLong)
}

func TestCreateWorkSchedule_InvertedRangeCreatesNothing(t *testing.T) {
	svc, _ := newTestService(t)
	spec := weeklySpec()
	spec.EndDate = "2023-12-01"

	res, err := svc.CreateWorkSchedule(context.Background(), "p-1", spec)
	require.NoError(t, err)
	assert.Empty(t, res.Occurrences)

	stored, err := svc.Appointments(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCreateWorkSchedule_UnknownParticipant(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateWorkSchedule(context.Background(), "ghost", weeklySpec())

	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestCreateWorkSchedule_MissingParticipant(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateWorkSchedule(context.Background(), "", weeklySpec())

	assert.ErrorIs(t, err, ErrMissingParticipant)
}

func TestAppointments_SkipsMalformed(t *testing.T) {
	svc, mem := newTestService(t)
	require.NoError(t, mem.SubmitBatch(context.Background(), graph.Batch{
		Entities: []graph.Entity{
			{ID: "a-bad", Type: TypeAppointment, Properties: map[string]any{PropStart: "Invalid date"}},
		},
		Associations: []graph.Association{{Type: AssocScheduled, Src: "p-2", Dst: "a-bad"}},
	}))

	got, err := svc.Appointments(context.Background(), "p-2")

	require.NoError(t, err)
	assert.Empty(t, got)
}

// ──────────────────────────────────────────────────────────────────────────────
// Check-ins and reports
// ──────────────────────────────────────────────────────────────────────────────

func TestWeeklyReport(t *testing.T) {
	svc, mem := newTestService(t)
	addCheckIns(t, mem, "p-1",
		checkInRow{"c-1", "2024-01-02T09:00:00Z", 4.0},
		checkInRow{"c-2", "2024-01-04T09:00", 5},
		checkInRow{"c-3", "2024-01-10T09:00:00Z", "3.5"},
		checkInRow{"c-4", "not a time", 2.0},
	)

	r, err := svc.WeeklyReport(context.Background(), "p-1")
	require.NoError(t, err)

	require.Len(t, r.Weeks, 2)
	assert.Equal(t, 9.0, r.Weeks[0].Hours)
	assert.True(t, r.Weeks[0].Met)
	assert.Equal(t, 3.5, r.Weeks[1].Hours)
	assert.Equal(t, 4.5, r.Weeks[1].Shortfall)
	assert.Equal(t, 1, r.WeeksShort())
}

func TestWeeklyReport_ConvertsOffsetsToServiceZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	_, mem := newTestService(t)
	svc := NewService(mem, Options{Location: ny, WeekStart: time.Monday, RequiredWeeklyHours: 4})
	addCheckIns(t, mem, "p-1",
		checkInRow{"c-1", "2024-03-07T10:00:00-05:00", 3.0},
		checkInRow{"c-2", "2024-03-11T04:30:00Z", 5.0}, // Monday 00:30 EDT
	)

	r, err := svc.WeeklyReport(context.Background(), "p-1")
	require.NoError(t, err)

	require.Len(t, r.Weeks, 2)
	assert.Equal(t, "2024-03-11T00:00:00-04:00", r.Weeks[1].WeekStart.String())
	assert.Equal(t, 3.0, r.Weeks[0].Hours)
	assert.Equal(t, 5.0, r.Weeks[1].Hours)
	assert.Equal(t, 0.0, r.Unattributed)
}

func TestSweepCompliance(t *testing.T) {
	svc, mem := newTestService(t)
	addCheckIns(t, mem, "p-1", checkInRow{"c-1", "2024-01-02T09:00:00Z", 8.0})
	addCheckIns(t, mem, "p-2", checkInRow{"c-2", "2024-01-02T09:00:00Z", 2.0})

	reports, err := svc.SweepCompliance(context.Background(), "program-1")
	require.NoError(t, err)

	require.Len(t, reports, 2)
	assert.Equal(t, "p-1", reports[0].ParticipantID)
	assert.Equal(t, 0, reports[0].Report.WeeksShort())
	assert.Equal(t, "p-2", reports[1].ParticipantID)
	assert.Equal(t, 1, reports[1].Report.WeeksShort())
}

type failingNeighbors struct {
	*graph.Memory
	failFor string
}

func (f failingNeighbors) SearchNeighbors(ctx context.Context, id, typ string) ([]graph.Entity, error) {
	if id == f.failFor {
		return nil, errors.New("backend timeout")
	}
	return f.Memory.SearchNeighbors(ctx, id, typ)
}

func TestSweepCompliance_PartialFailure(t *testing.T) {
	_, mem := newTestService(t)
	svc := NewService(failingNeighbors{Memory: mem, failFor: "p-2"}, Options{Location: time.UTC, WeekStart: time.Monday})

	reports, err := svc.SweepCompliance(context.Background(), "program-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "p-2")
	require.Len(t, reports, 1)
	assert.Equal(t, "p-1", reports[0].ParticipantID)
}

func TestFloatProp(t *testing.T) {
	props := map[string]any{"a": 1.5, "b": 2, "c": "3.25", "d": true}

	v, ok := floatProp(props, "a")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)
	v, ok = floatProp(props, "b")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	v, ok = floatProp(props, "c")
	assert.True(t, ok)
	assert.Equal(t, 3.25, v)
	_, ok = floatProp(props, "d")
	assert.False(t, ok)
	_, ok = floatProp(props, "missing")
	assert.False(t, ok)
}
