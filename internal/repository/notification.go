package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
