package task

import (
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// cronParser accepts the same standard 5-field expressions and descriptors
// as the asynq scheduler.
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// NextFire validates expr and returns its first firing strictly after from.
func NextFire(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule.Next(from), nil
}
