package repository

import (
	"context"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
)

// SessionRepository stores the single admission session row.
type SessionRepository interface {
	Load(ctx context.Context) (*domain.AdmissionSession, error)
	Save(ctx context.Context, s *domain.AdmissionSession) error
	Delete(ctx context.Context) error
}
