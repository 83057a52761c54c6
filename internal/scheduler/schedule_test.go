package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

func TestCronSpec_FixedIntervals(t *testing.T) {
	spec, err := cronSpec(domain.ScheduleEvery2h)
	require.NoError(t, err)
	assert.Equal(t, "@every 2h", spec)

	spec, err = cronSpec(domain.ScheduleEvery4h)
	require.NoError(t, err)
	assert.Equal(t, "@every 4h", spec)
}

func TestCronSpec_NamedSchedules(t *testing.T) {
	daily, err := cronSpec(domain.ScheduleDaily)
	require.NoError(t, err)
	assert.Equal(t, "0 6 * * *", daily)

	weekly, err := cronSpec(domain.ScheduleWeekly)
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * 1", weekly)

	monthly, err := cronSpec(domain.ScheduleMonthly)
	require.NoError(t, err)
	assert.Equal(t, "0 2 1 * *", monthly)
}

func TestCronSpec_UnknownSchedule(t *testing.T) {
	_, err := cronSpec(domain.Schedule("fortnightly"))
	assert.Error(t, err)
}
