// Package bookmark holds the persisted bookmark records.
package bookmark

import (
	"time"

	"github.com/travellens-cloud/travellens/internal/domain/history"
)

// Bookmark is an explicitly saved landmark owned by a single user.
// Unlike history entries, bookmarks are uncapped and only removed by
// an explicit user action.
type Bookmark struct {
	ID          string
	OwnerID     string
	Name        string
	WikiLink    string
	ImageURL    string
	Description string
	Coordinates string
	CreatedAt   time.Time
}

// NormalizedName returns the dedup key for this bookmark's name.
func (b Bookmark) NormalizedName() string {
	return history.NormalizeName(b.Name)
}
