package bookmark

import (
	"fmt"
	"strconv"
	"time"

	dombm "github.com/travellens-cloud/travellens/internal/domain/bookmark"
)

// bookmarkToHash converts a domain Bookmark to a map for HSET.
func bookmarkToHash(b dombm.Bookmark) map[string]string {
	return map[string]string{
		"id":          b.ID,
		"owner_id":    b.OwnerID,
		"name":        b.Name,
		"wiki_link":   b.WikiLink,
		"image_url":   b.ImageURL,
		"description": b.Description,
		"coordinates": b.Coordinates,
		"created_at":  strconv.FormatInt(b.CreatedAt.UnixMilli(), 10),
	}
}

// bookmarkFromHash hydrates a domain Bookmark from an HGETALL result map.
func bookmarkFromHash(m map[string]string) (dombm.Bookmark, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return dombm.Bookmark{}, fmt.Errorf("invalid created_at %q: %w", m["created_at"], err)
	}

	return dombm.Bookmark{
		ID:          m["id"],
		OwnerID:     m["owner_id"],
		Name:        m["name"],
		WikiLink:    m["wiki_link"],
		ImageURL:    m["image_url"],
		Description: m["description"],
		Coordinates: m["coordinates"],
		CreatedAt:   time.UnixMilli(createdAt).UTC(),
	}, nil
}
