package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nurulabs/roiprojector/internal/logger"
)

// Start runs job on the given cron schedule in a background goroutine.
// The schedule is a standard 5-field cron expression (minute hour
// day-of-month month day-of-week) or a descriptor such as "@daily".
// An empty schedule disables the job without error.
func Start(name, schedule string, job func()) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		logger.Info("scheduled job disabled", "job", name)
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, name, err)
	}

	logger.Info("scheduled job registered", "job", name, "schedule", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			logger.Debug("next scheduled run", "job", name, "at", next)
			time.Sleep(next.Sub(now))
			job()
		}
	}()

	return nil
}
