package postgres

import (
	"context"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	var created domain.Notification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (owner_id, kind, entity_id, title, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, owner_id, kind, entity_id, title, body, created_at`,
		n.OwnerID, string(n.Kind), n.EntityID, n.Title, n.Body,
	).Scan(
		&created.ID, &created.OwnerID, &created.Kind, &created.EntityID,
		&created.Title, &created.Body, &created.CreatedAt,
	)
	if err != nil {
		return nil, persistenceErr("create notification", err)
	}
	return &created, nil
}

func (r *NotificationRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, persistenceErr("purge notifications", err)
	}
	return int(tag.RowsAffected()), nil
}
