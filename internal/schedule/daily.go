package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Location returns the fixed digest time zone (ICT, UTC+7). Falls back to a
// fixed offset when the host has no tzdata.
func Location() *time.Location {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// Daily fires a job once per day at the configured wall-clock time.
type Daily struct {
	Hour   int
	Minute int

	// Loc defaults to Location().
	Loc *time.Location

	Job func(ctx context.Context)
	Log *logrus.Entry
}

// Spec renders the trigger as a standard cron expression.
func (d *Daily) Spec() string {
	return fmt.Sprintf("%d %d * * *", d.Minute, d.Hour)
}

// Run blocks, firing the job daily, until the context is cancelled. The job
// is responsible for its own failure handling; a failed firing never stops
// the schedule.
func (d *Daily) Run(ctx context.Context) error {
	loc := d.Loc
	if loc == nil {
		loc = Location()
	}
	log := d.logger()

	c := cron.New(cron.WithLocation(loc))
	id, err := c.AddFunc(d.Spec(), func() { d.runJob(ctx) })
	if err != nil {
		return fmt.Errorf("schedule daily job: %w", err)
	}

	c.Start()
	log.WithFields(logrus.Fields{
		"schedule": fmt.Sprintf("%02d:%02d %s", d.Hour, d.Minute, loc),
		"next_run": c.Entry(id).Next.Format(time.RFC3339),
	}).Info("scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("scheduler stopped")
	return ctx.Err()
}

// runJob shields the schedule from a panicking job: one bad firing is logged
// and the next firing still happens.
func (d *Daily) runJob(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.logger().WithField("panic", r).Error("scheduled job panicked")
		}
	}()
	d.Job(ctx)
}

func (d *Daily) logger() *logrus.Entry {
	if d.Log != nil {
		return d.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
