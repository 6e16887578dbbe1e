package history

import (
	"context"

	domhist "github.com/travellens-cloud/travellens/internal/domain/history"
)

// Repository defines the storage contract for history entries.
// ListByOwner returns the authoritative entry set; GetIndex/SetIndex
// manage the denormalized recency index derived from it.
type Repository interface {
	Get(ctx context.Context, ownerID, id string) (domhist.Entry, error)
	FindIDByName(ctx context.Context, ownerID, normName string) (string, error)
	Put(ctx context.Context, e domhist.Entry) error
	Delete(ctx context.Context, ownerID, id, normName string) error
	ListByOwner(ctx context.Context, ownerID string) ([]domhist.Entry, error)
	GetIndex(ctx context.Context, ownerID string) ([]string, error)
	SetIndex(ctx context.Context, ownerID string, ids []string) error
}
