package application

import (
	"context"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
)

// EntryIndexer mirrors entries into a search index.
type EntryIndexer interface {
	Index(ctx context.Context, e entity.Entry) error
	Remove(ctx context.Context, id string) error
	// Search returns matching entries. A non-empty ownerID restricts hits to that owner.
	Search(ctx context.Context, query, ownerID string, size int) ([]entity.Entry, error)
}

// ExportStore writes exported objects and returns their location.
type ExportStore interface {
	Put(ctx context.Context, name, contentType string, body []byte) (string, error)
}

// ActivityPublisher forwards activity events to whoever consumes them.
type ActivityPublisher interface {
	Publish(ctx context.Context, a entity.Activity) error
}
