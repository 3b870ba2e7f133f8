package wallclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksched/internal/model"
)

func TestCombine_RoundTrip(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)

	in := CombineIn("2024-01-03", "14:30", loc)
	require.True(t, in.Valid())
	assert.Equal(t, "2024-01-03T14:30:00-05:00", in.String())

	parsed, err := time.Parse(time.RFC3339, in.String())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", parsed.Format(model.DateLayout))
	assert.Equal(t, "14:30", parsed.Format(model.ClockLayout))
}

func TestCombine_AcceptsSeconds(t *testing.T) {
	in := CombineIn("2024-02-29", "07:05:09", time.UTC)

	require.True(t, in.Valid())
	assert.Equal(t, time.Date(2024, 2, 29, 7, 5, 9, 0, time.UTC), in.Time())
}

func TestCombine_MalformedYieldsInvalid(t *testing.T) {
	cases := [][2]string{
		{"", "09:00"},
		{"2024-01-03", ""},
		{"2024-13-01", "09:00"},
		{"2023-02-29", "09:00"},
		{"01/03/2024", "09:00"},
		{"2024-01-03", "25:00"},
		{"2024-01-03", "nine"},
	}
	for _, c := range cases {
		got := Combine(c[0], c[1])
		assert.False(t, got.Valid(), "combine(%q, %q)", c[0], c[1])
		assert.Equal(t, "Invalid date", got.String())
	}
}

func TestCombine_Idempotent(t *testing.T) {
	a := CombineIn("2024-06-01", "08:15", time.UTC)
	b := CombineIn("2024-06-01", "08:15", time.UTC)
	assert.Equal(t, a, b)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 8.5, Duration("09:00", "17:30"))
	assert.Equal(t, 0.0, Duration("17:00", "09:00"))
	assert.Equal(t, 0.0, Duration("09:00", "09:00"))
	assert.Equal(t, 0.25, Duration("12:00", "12:15"))
	assert.Equal(t, 0.0, Duration("garbage", "12:15"))
}

func TestIsClock(t *testing.T) {
	assert.True(t, IsClock("09:00"))
	assert.True(t, IsClock("23:59:59"))
	assert.False(t, IsClock("24:00"))
	assert.False(t, IsClock("9am"))
	assert.False(t, IsClock(""))
}

func TestParseInstantIn(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)

	withOffset := ParseInstantIn("2024-01-03T09:00:00Z", loc)
	require.True(t, withOffset.Valid())
	assert.Equal(t, loc, withOffset.Time().Location())
	assert.Equal(t, "2024-01-03T11:00:00+02:00", withOffset.String())

	local := ParseInstantIn("2024-01-03T09:00", loc)
	require.True(t, local.Valid())
	assert.Equal(t, "2024-01-03T09:00:00+02:00", local.String())

	assert.False(t, ParseInstantIn("yesterday", loc).Valid())
}

func TestISOWeekday(t *testing.T) {
	assert.Equal(t, 1, ISOWeekday(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, ISOWeekday(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 7, ISOWeekday(time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)))

	wd, ok := WeekdayFromISO(7)
	assert.True(t, ok)
	assert.Equal(t, time.Sunday, wd)
	_, ok = WeekdayFromISO(0)
	assert.False(t, ok)
}

func TestStartOfWeek(t *testing.T) {
	wed := time.Date(2024, 1, 3, 15, 45, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), StartOfWeek(wed, time.Monday))
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), StartOfWeek(wed, time.Sunday))

	mon := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, mon, StartOfWeek(mon, time.Monday))
}

func TestWeeksBetween(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, WeeksBetween(a, a.AddDate(0, 0, 6)))
	assert.Equal(t, 1, WeeksBetween(a, a.AddDate(0, 0, 7)))
	assert.Equal(t, 4, WeeksBetween(a, a.AddDate(0, 0, 28)))
	assert.Equal(t, -1, WeeksBetween(a, a.AddDate(0, 0, -1)))
}

func TestDaysBetween_IgnoresDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	before := time.Date(2024, 3, 9, 0, 0, 0, 0, ny)
	after := time.Date(2024, 3, 11, 0, 0, 0, 0, ny)

	assert.Equal(t, 2, DaysBetween(before, after))
}
