package postgres

import (
	"context"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobLogRepository struct {
	pool *pgxpool.Pool
}

func NewJobLogRepository(pool *pgxpool.Pool) *JobLogRepository {
	return &JobLogRepository{pool: pool}
}

func (r *JobLogRepository) Open(ctx context.Context, l *domain.JobLog) (*domain.JobLog, error) {
	query := `
		INSERT INTO job_logs (kind, entity_id, trigger, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, kind, entity_id, trigger, status, started_at,
		          completed_at, duration_ms, error`

	row := r.pool.QueryRow(ctx, query, string(l.Kind), l.EntityID, string(l.Trigger), l.StartedAt)
	return scanJobLog(row)
}

func (r *JobLogRepository) Close(ctx context.Context, id string, status domain.JobStatus, errMsg *string, durationMS int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE job_logs
		SET completed_at = NOW(),
		    status       = $2,
		    error        = $3,
		    duration_ms  = $4
		WHERE id = $1`,
		id, string(status), errMsg, durationMS,
	)
	if err != nil {
		return persistenceErr("close job log", err)
	}
	return nil
}

func (r *JobLogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM job_logs WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, persistenceErr("purge job logs", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanJobLog(row rowScanner) (*domain.JobLog, error) {
	var l domain.JobLog
	err := row.Scan(
		&l.ID, &l.Kind, &l.EntityID, &l.Trigger, &l.Status, &l.StartedAt,
		&l.CompletedAt, &l.DurationMS, &l.Error,
	)
	if err != nil {
		return nil, persistenceErr("scan job log", err)
	}
	return &l, nil
}
