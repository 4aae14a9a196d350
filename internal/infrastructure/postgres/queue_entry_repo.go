package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queueEntryColumns = `
	id, owner_id, booking_id, booking_reference, is_active, check_interval_minutes,
	attempts_count, max_attempts, last_checked_at, next_check_at, last_result,
	last_error, success_date, new_booking_reference, created_at, updated_at`

type QueueEntryRepository struct {
	pool *pgxpool.Pool
}

func NewQueueEntryRepository(pool *pgxpool.Pool) *QueueEntryRepository {
	return &QueueEntryRepository{pool: pool}
}

func (r *QueueEntryRepository) Create(ctx context.Context, ownerID string, e *domain.QueueEntry) (*domain.QueueEntry, error) {
	query := `
		INSERT INTO queue_entries (
			owner_id, booking_id, booking_reference, is_active,
			check_interval_minutes, max_attempts
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + queueEntryColumns

	row := r.pool.QueryRow(ctx, query,
		ownerID, e.BookingID, e.BookingReference, e.IsActive,
		e.CheckIntervalMinutes, e.MaxAttempts,
	)

	created, err := scanQueueEntry(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateQueueEntry
		}
		return nil, err
	}
	return created, nil
}

func (r *QueueEntryRepository) FindByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+queueEntryColumns+` FROM queue_entries WHERE id = $1`, id)
	return scanQueueEntry(row)
}

func (r *QueueEntryRepository) FindActive(ctx context.Context) ([]*domain.QueueEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueEntryColumns+`
		FROM queue_entries
		WHERE is_active
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, persistenceErr("find active queue entries", err)
	}
	return collectQueueEntries(rows)
}

func (r *QueueEntryRepository) FindDueForCheck(ctx context.Context, now time.Time) ([]*domain.QueueEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueEntryColumns+`
		FROM queue_entries
		WHERE is_active
		  AND (next_check_at IS NULL OR next_check_at <= $1)
		ORDER BY next_check_at ASC NULLS FIRST`, now)
	if err != nil {
		return nil, persistenceErr("find due queue entries", err)
	}
	return collectQueueEntries(rows)
}

func (r *QueueEntryRepository) Update(ctx context.Context, id string, u domain.QueueEntryUpdate) (*domain.QueueEntry, error) {
	args := []any{id}
	set := []string{"updated_at = NOW()"}

	if u.CheckIntervalMinutes != nil {
		args = append(args, *u.CheckIntervalMinutes)
		set = append(set, fmt.Sprintf("check_interval_minutes = $%d", len(args)))
	}
	maxAttempts := "max_attempts"
	if u.MaxAttempts != nil {
		args = append(args, *u.MaxAttempts)
		maxAttempts = fmt.Sprintf("$%d", len(args))
		set = append(set, "max_attempts = "+maxAttempts)
	}
	active := "is_active"
	if u.IsActive != nil {
		args = append(args, *u.IsActive)
		active = fmt.Sprintf("$%d", len(args))
	}
	// An exhausted entry never stays active.
	set = append(set, fmt.Sprintf("is_active = %s AND attempts_count < %s", active, maxAttempts))

	// Succeeded entries are immutable.
	query := fmt.Sprintf(`
		UPDATE queue_entries SET %s
		WHERE id = $1 AND success_date IS NULL
		RETURNING %s`, strings.Join(set, ", "), queueEntryColumns)

	updated, err := scanQueueEntry(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, domain.ErrQueueEntryNotFound) {
		return nil, r.immutableOrMissing(ctx, id)
	}
	return updated, err
}

func (r *QueueEntryRepository) RecordAttempt(ctx context.Context, id string, a domain.RebookAttempt) (*domain.QueueEntry, error) {
	// attempts_count + 1 is evaluated against the pre-update row on both
	// sides, so deactivation and the increment see the same value.
	query := `
		UPDATE queue_entries
		SET    attempts_count        = attempts_count + 1,
		       last_checked_at       = $2,
		       next_check_at         = $3,
		       last_result           = $4,
		       last_error            = $5,
		       success_date          = CASE WHEN $6 THEN $2 ELSE NULL END,
		       new_booking_reference = CASE WHEN $6 THEN $7 ELSE NULL END,
		       is_active             = is_active AND NOT $6 AND attempts_count + 1 < max_attempts,
		       updated_at            = NOW()
		WHERE id = $1
		  AND success_date IS NULL
		  AND attempts_count < max_attempts
		RETURNING ` + queueEntryColumns

	row := r.pool.QueryRow(ctx, query,
		id, a.CheckedAt, a.NextCheckAt, string(a.Outcome), a.Error, a.Success, a.NewBookingReference,
	)
	updated, err := scanQueueEntry(row)
	if errors.Is(err, domain.ErrQueueEntryNotFound) {
		return nil, r.immutableOrMissing(ctx, id)
	}
	return updated, err
}

func (r *QueueEntryRepository) immutableOrMissing(ctx context.Context, id string) error {
	e, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if e.Succeeded() || e.Exhausted() {
		return domain.ErrQueueEntryImmutable
	}
	return domain.ErrQueueEntryNotFound
}

func (r *QueueEntryRepository) Deactivate(ctx context.Context, id string) error {
	return r.setActive(ctx, id, false)
}

func (r *QueueEntryRepository) Activate(ctx context.Context, id string) error {
	return r.setActive(ctx, id, true)
}

func (r *QueueEntryRepository) setActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE queue_entries SET is_active = $2, updated_at = NOW()
		 WHERE id = $1 AND success_date IS NULL`, id, active)
	if err != nil {
		return persistenceErr("set queue entry active", err)
	}
	if tag.RowsAffected() == 0 {
		return r.immutableOrMissing(ctx, id)
	}
	return nil
}

func collectQueueEntries(rows pgx.Rows) ([]*domain.QueueEntry, error) {
	defer rows.Close()

	var entries []*domain.QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate queue entries", err)
	}
	return entries, nil
}

func scanQueueEntry(row rowScanner) (*domain.QueueEntry, error) {
	var e domain.QueueEntry
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.BookingID, &e.BookingReference, &e.IsActive, &e.CheckIntervalMinutes,
		&e.AttemptsCount, &e.MaxAttempts, &e.LastCheckedAt, &e.NextCheckAt, &e.LastResult,
		&e.LastError, &e.SuccessDate, &e.NewBookingReference, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQueueEntryNotFound
		}
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, persistenceErr("scan queue entry", err)
	}
	return &e, nil
}
