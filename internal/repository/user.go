package repository

import (
	"context"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
)

type UserRepository interface {
	// Upsert records the owner id and refreshes the email when one is known.
	Upsert(ctx context.Context, id string, email *string) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
