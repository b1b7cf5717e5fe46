package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
)

// ProfileRepository defines the interface for profile lookups and provisioning.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
	// Create inserts a non-admin profile if none exists for id.
	Create(ctx context.Context, id string) error
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
}
