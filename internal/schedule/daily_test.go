package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

func TestDailySpec(t *testing.T) {
	d := &Daily{Hour: 9, Minute: 30}
	if got := d.Spec(); got != "30 9 * * *" {
		t.Errorf("Spec() = %q, want %q", got, "30 9 * * *")
	}
}

func TestDailySpecFiresOncePerDayInLocation(t *testing.T) {
	d := &Daily{Hour: 9, Minute: 0}
	sched, err := cron.ParseStandard(d.Spec())
	if err != nil {
		t.Fatalf("parse spec: %v", err)
	}

	loc := Location()
	from := time.Date(2025, 12, 3, 10, 0, 0, 0, loc)

	first := sched.Next(from)
	want := time.Date(2025, 12, 4, 9, 0, 0, 0, loc)
	if !first.Equal(want) {
		t.Errorf("next firing = %v, want %v", first, want)
	}

	second := sched.Next(first)
	if got := second.Sub(first); got != 24*time.Hour {
		t.Errorf("firings should be 24h apart, got %v", got)
	}
}

func TestDailyJobPanicDoesNotKillSchedule(t *testing.T) {
	calls := 0
	d := &Daily{Job: func(ctx context.Context) {
		calls++
		if calls == 1 {
			panic("summary run exploded")
		}
	}}

	d.runJob(context.Background())
	d.runJob(context.Background())

	if calls != 2 {
		t.Fatalf("expected the firing after a panic to still run, got %d calls", calls)
	}
}

func TestLocationIsICT(t *testing.T) {
	loc := Location()
	_, offset := time.Date(2025, 12, 3, 0, 0, 0, 0, time.UTC).In(loc).Zone()
	if offset != 7*60*60 {
		t.Errorf("expected UTC+7 offset, got %d", offset)
	}
}
