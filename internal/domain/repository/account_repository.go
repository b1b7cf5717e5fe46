package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
)

// AccountRepository stores the auth backend's signed-up identities.
type AccountRepository interface {
	// Create inserts a and fills ID and CreatedAt. Returns ErrDuplicate if the email is taken.
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
}
