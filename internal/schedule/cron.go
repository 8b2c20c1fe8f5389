package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"fediclock/internal/custom_errors"
)

// parser accepts the standard 5-field crontab format only. Descriptors
// like @hourly are rejected so stored schedules stay portable.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Next returns the earliest instant strictly after from that matches expr.
// No clock is read; callers supply the reference instant.
func Next(expr string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", custom_errors.ErrInvalidSchedule, expr, err)
	}

	next := sched.Next(from)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q has no future occurrence", custom_errors.ErrInvalidSchedule, expr)
	}
	return next, nil
}
