package docs

import (
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextCleanup parses a 5-field cron expression and returns the next fire time
// after now. The zero time signals a parse error; the caller falls back to
// not scheduling.
func NextCleanup(expr string, now time.Time) time.Time {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(now)
}
