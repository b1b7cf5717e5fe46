package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
)

// EntryRepository is the record store for diary entries.
//
// ownerID is the store-side access rule: when non-empty, only rows owned by
// ownerID are visible or mutable. An empty ownerID means unrestricted (admin).
type EntryRepository interface {
	// ListCreatedBetween returns entries with from <= created_at < to, oldest first.
	ListCreatedBetween(ctx context.Context, from, to time.Time, ownerID string) ([]entity.Entry, error)
	GetByID(ctx context.Context, id string) (*entity.Entry, error)
	// Create inserts e and fills ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, e *entity.Entry) error
	UpdateContent(ctx context.Context, id, ownerID, content string) (*entity.Entry, error)
	Delete(ctx context.Context, id, ownerID string) error
}
