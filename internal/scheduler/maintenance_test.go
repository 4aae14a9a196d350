package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/metrics"
	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMaintenance_RetiresPastWatches(t *testing.T) {
	past := newWatch("past")
	past.ArrivalDate = time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC)
	today := newWatch("today")
	today.ArrivalDate = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	watches := newFakeWatchRepo(past, today)

	logs := &fakeJobLogRepo{deleted: 7}
	notifications := &fakeNotificationRepo{deleted: 2}

	before := testutil.ToFloat64(metrics.MaintenanceRemovedTotal.WithLabelValues("job_logs"))

	m := scheduler.NewMaintenance(logs, notifications, watches, 30*24*time.Hour, 30*24*time.Hour, time.UTC, testLogger).
		WithClock(func() time.Time { return fixedNow })

	res, err := m.Execute(context.Background(), scheduler.MaintenanceID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Released) != 1 || res.Released[0] != (domain.JobKey{Kind: domain.JobKindWatch, EntityID: "past"}) {
		t.Errorf("released = %v", res.Released)
	}
	if watches.get("past").IsActive {
		t.Error("past watch still active")
	}
	if !watches.get("today").IsActive {
		t.Error("watch arriving today was retired")
	}
	if got := testutil.ToFloat64(metrics.MaintenanceRemovedTotal.WithLabelValues("job_logs")); got != before+7 {
		t.Errorf("job_logs removed = %v, want %v", got, before+7)
	}
}

func TestMaintenance_ContinuesAfterFailure(t *testing.T) {
	past := newWatch("past")
	past.ArrivalDate = time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC)
	watches := newFakeWatchRepo(past)

	m := scheduler.NewMaintenance(&fakeJobLogRepo{}, &fakeNotificationRepo{err: errors.New("db down")}, watches,
		time.Hour, time.Hour, time.UTC, testLogger).
		WithClock(func() time.Time { return fixedNow })

	res, err := m.Execute(context.Background(), scheduler.MaintenanceID)
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Status != domain.JobStatusError {
		t.Errorf("status = %q, want error", res.Status)
	}
	if len(res.Released) != 1 {
		t.Errorf("released = %v, want the past watch", res.Released)
	}
}
