package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksched/internal/model"
)

func TestBuildReport(t *testing.T) {
	checkIns := []model.CheckIn{
		checkIn(day(2024, 1, 2, 9), 6),
		checkIn(day(2024, 1, 4, 9), 4.5),
		checkIn(day(2024, 1, 15, 0), 3), // boundary
		checkIn(day(2024, 1, 17, 9), 8),
	}

	r := BuildReport(checkIns, time.Monday, time.UTC, 10)

	require.Len(t, r.Weeks, 3)

	assert.Equal(t, 10.5, r.Weeks[0].Hours)
	assert.True(t, r.Weeks[0].Met)
	assert.Equal(t, 0.0, r.Weeks[0].Shortfall)

	assert.Equal(t, 0.0, r.Weeks[1].Hours)
	assert.False(t, r.Weeks[1].Met)
	assert.Equal(t, 10.0, r.Weeks[1].Shortfall)

	assert.Equal(t, 8.0, r.Weeks[2].Hours)
	assert.Equal(t, 2.0, r.Weeks[2].Shortfall)

	assert.Equal(t, 30.0, r.RequiredTotal)
	assert.Equal(t, 18.5, r.WorkedTotal)
	assert.Equal(t, 3.0, r.Unattributed)
	assert.Equal(t, 2, r.WeeksShort())
}

func TestBuildReport_NoRequirement(t *testing.T) {
	r := BuildReport([]model.CheckIn{checkIn(day(2024, 1, 2, 9), 1)}, time.Monday, time.UTC, -5)

	require.Len(t, r.Weeks, 1)
	assert.True(t, r.Weeks[0].Met)
	assert.Equal(t, 0.0, r.RequiredTotal)
}

func TestBuildReport_Empty(t *testing.T) {
	r := BuildReport(nil, time.Monday, time.UTC, 8)

	assert.Empty(t, r.Weeks)
	assert.Equal(t, 0, r.WeeksShort())
}
