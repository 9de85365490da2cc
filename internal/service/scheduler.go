// internal/service/scheduler.go
package service

import (
	"context"
	"log"
	"time"
)

// Scheduler triggers a daily outreach run at a fixed local time. It shares
// the runner's single-flight state with the manual HTTP trigger, so an
// overlapping manual run simply wins.
type Scheduler struct {
	Runner *Runner
	Hour   int
	Minute int
	Limit  int
}

// Schedule describes when the next run fires, for the status endpoint.
func (s *Scheduler) Schedule() string {
	return time.Date(0, 1, 1, s.Hour, s.Minute, 0, 0, time.Local).Format("3:04 PM daily")
}

// Start launches the scheduling loop. The loop stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		for {
			next := nextRunAfter(time.Now(), s.Hour, s.Minute)
			log.Println("Outreach job scheduled for", next.Format(time.RFC3339))

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(next)):
			}

			log.Println("Outreach cron triggered at", time.Now().Format(time.RFC3339))
			if !s.Runner.TryRun(ctx, s.Limit) {
				log.Println("Outreach job is already running, skipping scheduled trigger")
			}
		}
	}()
}

// nextRunAfter returns the next occurrence of hour:minute strictly after now.
func nextRunAfter(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
