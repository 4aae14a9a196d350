package postgres

import (
	"context"
	"errors"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sessionRowID is the constant key of the single admission_session row.
const sessionRowID = 1

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Load(ctx context.Context) (*domain.AdmissionSession, error) {
	var (
		s      domain.AdmissionSession
		status string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT session_key, status, queue_position, estimated_wait_sec,
		       expires_at, created_at, last_checked_at
		FROM admission_session
		WHERE id = $1`, sessionRowID,
	).Scan(
		&s.SessionKey, &status, &s.QueuePosition, &s.EstimatedWaitSec,
		&s.ExpiresAt, &s.CreatedAt, &s.LastCheckedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, persistenceErr("load admission session", err)
	}
	s.Status = domain.ParseSessionStatus(status)
	return &s, nil
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.AdmissionSession) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admission_session (
			id, session_key, status, queue_position, estimated_wait_sec,
			expires_at, created_at, last_checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET session_key        = EXCLUDED.session_key,
		    status             = EXCLUDED.status,
		    queue_position     = EXCLUDED.queue_position,
		    estimated_wait_sec = EXCLUDED.estimated_wait_sec,
		    expires_at         = EXCLUDED.expires_at,
		    created_at         = EXCLUDED.created_at,
		    last_checked_at    = EXCLUDED.last_checked_at`,
		sessionRowID, s.SessionKey, string(s.Status), s.QueuePosition, s.EstimatedWaitSec,
		s.ExpiresAt, s.CreatedAt, s.LastCheckedAt,
	)
	if err != nil {
		return persistenceErr("save admission session", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM admission_session WHERE id = $1`, sessionRowID); err != nil {
		return persistenceErr("delete admission session", err)
	}
	return nil
}
