package bookmark

import (
	"context"

	dombm "github.com/travellens-cloud/travellens/internal/domain/bookmark"
)

// Repository defines the storage contract for bookmarks.
type Repository interface {
	Get(ctx context.Context, ownerID, id string) (dombm.Bookmark, error)
	FindIDByName(ctx context.Context, ownerID, normName string) (string, error)
	Put(ctx context.Context, b dombm.Bookmark) error
	Delete(ctx context.Context, ownerID, id, normName string) error
	ListByOwner(ctx context.Context, ownerID string) ([]dombm.Bookmark, error)
}
