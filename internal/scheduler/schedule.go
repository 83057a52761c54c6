package scheduler

import (
	"fmt"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

// cronSpec translates spec §4.9's five symbolic schedules into either a
// robfig/cron "@every" spec (fixed interval) or a standard 5-field cron
// expression (UTC), mirroring the teacher's single CRON_SCHEDULE string but
// generalized to per-source schedules drawn from the catalog.
func cronSpec(s domain.Schedule) (string, error) {
	switch s {
	case domain.ScheduleEvery2h:
		return "@every 2h", nil
	case domain.ScheduleEvery4h:
		return "@every 4h", nil
	case domain.ScheduleDaily:
		return "0 6 * * *", nil
	case domain.ScheduleWeekly:
		return "0 3 * * 1", nil
	case domain.ScheduleMonthly:
		return "0 2 1 * *", nil
	default:
		return "", fmt.Errorf("unknown schedule %q", s)
	}
}
