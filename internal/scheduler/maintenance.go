package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/ErlanBelekov/campsite-scheduler/internal/metrics"
	"github.com/ErlanBelekov/campsite-scheduler/internal/repository"
)

// MaintenanceID is the entity id of the single maintenance timer.
const MaintenanceID = "daily"

// Maintenance purges old audit and notification rows and retires watches
// whose arrival date has passed.
type Maintenance struct {
	jobLogs       repository.JobLogRepository
	notifications repository.NotificationRepository
	watches       repository.WatchRepository
	logRetention  time.Duration
	notifRetain   time.Duration
	loc           *time.Location
	logger        *slog.Logger
	now           func() time.Time
}

func NewMaintenance(
	jobLogs repository.JobLogRepository,
	notifications repository.NotificationRepository,
	watches repository.WatchRepository,
	logRetention, notificationRetention time.Duration,
	loc *time.Location,
	logger *slog.Logger,
) *Maintenance {
	return &Maintenance{
		jobLogs:       jobLogs,
		notifications: notifications,
		watches:       watches,
		logRetention:  logRetention,
		notifRetain:   notificationRetention,
		loc:           loc,
		logger:        logger.With("component", "maintenance"),
		now:           time.Now,
	}
}

func (m *Maintenance) WithClock(now func() time.Time) *Maintenance {
	m.now = now
	return m
}

// Execute runs every step even when an earlier one fails and reports the
// joined error.
func (m *Maintenance) Execute(ctx context.Context, _ string) (Result, error) {
	now := m.now()
	var errs []error

	logs, err := m.jobLogs.DeleteBefore(ctx, now.Add(-m.logRetention))
	if err != nil {
		errs = append(errs, fmt.Errorf("purge job logs: %w", err))
	} else {
		metrics.MaintenanceRemovedTotal.WithLabelValues("job_logs").Add(float64(logs))
	}

	notifs, err := m.notifications.DeleteBefore(ctx, now.Add(-m.notifRetain))
	if err != nil {
		errs = append(errs, fmt.Errorf("purge notifications: %w", err))
	} else {
		metrics.MaintenanceRemovedTotal.WithLabelValues("notifications").Add(float64(notifs))
	}

	y, mo, d := now.In(m.loc).Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)

	var released []domain.JobKey
	ids, err := m.watches.DeactivateArrivalBefore(ctx, today)
	if err != nil {
		errs = append(errs, fmt.Errorf("retire past watches: %w", err))
	} else {
		metrics.MaintenanceRemovedTotal.WithLabelValues("watches").Add(float64(len(ids)))
		for _, id := range ids {
			released = append(released, domain.JobKey{Kind: domain.JobKindWatch, EntityID: id})
		}
	}

	m.logger.InfoContext(ctx, "maintenance finished",
		"job_logs_deleted", logs,
		"notifications_deleted", notifs,
		"watches_retired", len(ids),
	)

	res := Result{Success: len(errs) == 0, Status: domain.JobStatusSuccess, Released: released}
	if err := errors.Join(errs...); err != nil {
		res.Status = domain.JobStatusError
		res.Message = err.Error()
		return res, err
	}
	return res, nil
}
